// Package session owns the wallet-connection lifecycle: enabling a wallet
// provider, remembering that the user connected, reconnecting on start-up and
// tearing the session down when the provider reports that the account is gone.
//
// The Manager is not safe for concurrent use. It is meant to be driven from a
// single event loop; only Enable may be called from another goroutine.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
)

// FlagKey is the store key that marks a previous manual connect.
const FlagKey = "connected"

// flagValue is written under FlagKey. Readers only check presence.
const flagValue = "injected"

var (
	// ErrBusy is returned by Connect while an enable is already in flight.
	ErrBusy = errors.New("session: enable already in flight")
	// ErrActive is returned by Connect when a session is already connected.
	ErrActive = errors.New("session: already connected")
	// ErrAccountGone is returned by Complete when the provider reported no
	// account while the enable was in flight.
	ErrAccountGone = errors.New("session: account disconnected during enable")
)

// Status is the position in the connection state machine.
type Status int

const (
	Disconnected Status = iota
	Enabling
	Connected
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Enabling:
		return "enabling"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// State is a snapshot of the connection. Account is non-nil iff IsConnected.
type State struct {
	IsConnected bool
	IsEnabling  bool
	Account     *common.Address
	ChainID     uint64
}

// Backend is the chain access a connected session hands to contract clients.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Info is what a provider reports once a wallet is enabled.
type Info struct {
	Account common.Address
	// ChainIDHex is the active network id, hex encoded ("0x539").
	ChainIDHex string
	Backend    Backend
	Transactor *bind.TransactOpts
}

// AccountChange is published by a provider when its selected account changes.
// A nil Account means every account was disconnected.
type AccountChange struct {
	Account *common.Address
}

// Provider is the wallet capability the manager drives.
type Provider interface {
	Enable(ctx context.Context) (Info, error)
	Disable() error
	SubscribeAccountChanges(ch chan<- AccountChange) event.Subscription
}

// Store persists the "was connected" flag across runs.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Clear(key string) error
}

// EventKind names a connection transition.
type EventKind int

const (
	// EventConnected fires on the Enabling -> Connected edge.
	EventConnected EventKind = iota
	// EventDisconnected fires on the Connected -> Disconnected edge.
	EventDisconnected
)

func (k EventKind) String() string {
	if k == EventConnected {
		return "connected"
	}
	return "disconnected"
}

// Event is delivered to subscribers on every transition edge.
type Event struct {
	Kind  EventKind
	State State
}

// Manager is the connection state machine.
type Manager struct {
	provider Provider
	store    Store

	status Status
	manual bool
	// cancelled discards the in-flight enable
	cancelled bool
	info      Info
	chainID   uint64

	listeners []func(Event)
}

// NewManager returns a disconnected manager.
func NewManager(provider Provider, store Store) *Manager {
	return &Manager{provider: provider, store: store}
}

// Subscribe registers fn for every transition edge. Listeners run
// synchronously on the caller of the transition.
func (m *Manager) Subscribe(fn func(Event)) {
	m.listeners = append(m.listeners, fn)
}

// Status returns the current state machine position.
func (m *Manager) Status() Status { return m.status }

// State returns a snapshot of the connection.
func (m *Manager) State() State {
	s := State{
		IsConnected: m.status == Connected,
		IsEnabling:  m.status == Enabling,
	}
	if s.IsConnected {
		acct := m.info.Account
		s.Account = &acct
		s.ChainID = m.chainID
	}
	return s
}

// Info returns the enabled wallet, if any.
func (m *Manager) Info() (Info, bool) {
	return m.info, m.status == Connected
}

// Provider returns the wallet capability the manager drives.
func (m *Manager) Provider() Provider { return m.provider }

// TryAutoReconnect moves to Enabling when no session is active and the
// persisted flag is present. When it returns true the caller must run Enable
// and report the outcome with Complete.
func (m *Manager) TryAutoReconnect() (bool, error) {
	if m.status != Disconnected {
		return false, nil
	}
	_, ok, err := m.store.Get(FlagKey)
	if err != nil {
		return false, fmt.Errorf("read connected flag: %w", err)
	}
	if !ok {
		return false, nil
	}
	m.status = Enabling
	m.manual = false
	m.cancelled = false
	return true, nil
}

// Connect is the user-invoked connect. On success the caller must run Enable
// and report the outcome with Complete; a successful Complete then persists the
// flag.
func (m *Manager) Connect() error {
	switch m.status {
	case Enabling:
		return ErrBusy
	case Connected:
		return ErrActive
	}
	m.status = Enabling
	m.manual = true
	m.cancelled = false
	return nil
}

// Enable runs the provider's enable capability. It does not touch manager
// state and may be called from any goroutine.
func (m *Manager) Enable(ctx context.Context) (Info, error) {
	return m.provider.Enable(ctx)
}

// Complete reports the outcome of Enable. A failure returns to Disconnected
// and hands the error back unchanged.
func (m *Manager) Complete(info Info, enableErr error) error {
	if m.status != Enabling {
		return nil
	}
	manual, cancelled := m.manual, m.cancelled
	m.manual, m.cancelled = false, false

	if enableErr != nil {
		m.status = Disconnected
		return enableErr
	}
	if cancelled {
		m.status = Disconnected
		_ = m.provider.Disable()
		return ErrAccountGone
	}

	chainID, err := ParseChainID(info.ChainIDHex)
	if err != nil {
		m.status = Disconnected
		_ = m.provider.Disable()
		return err
	}

	m.info = info
	m.chainID = chainID
	m.status = Connected

	var storeErr error
	if manual {
		if err := m.store.Set(FlagKey, flagValue); err != nil {
			storeErr = fmt.Errorf("write connected flag: %w", err)
		}
	}

	m.emit(EventConnected)
	return storeErr
}

// AccountChanged handles a provider account notification. A nil account
// deactivates the session, fails an enable still in flight and removes the
// persisted flag; any other account only replaces the displayed one.
func (m *Manager) AccountChanged(account *common.Address) error {
	if account != nil {
		if m.status == Connected {
			m.info.Account = *account
		}
		return nil
	}

	var errs []error
	if m.status == Enabling {
		m.cancelled = true
	}
	if m.status == Connected {
		if err := m.teardown(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.store.Clear(FlagKey); err != nil {
		errs = append(errs, fmt.Errorf("clear connected flag: %w", err))
	}
	return errors.Join(errs...)
}

// Deactivate ends the session but keeps the persisted flag, so the next
// TryAutoReconnect enables again. Used when the active network changes.
func (m *Manager) Deactivate() error {
	if m.status != Connected {
		return nil
	}
	return m.teardown()
}

func (m *Manager) teardown() error {
	err := m.provider.Disable()
	m.status = Disconnected
	m.info = Info{}
	m.chainID = 0
	m.emit(EventDisconnected)
	if err != nil {
		return fmt.Errorf("disable wallet: %w", err)
	}
	return nil
}

func (m *Manager) emit(kind EventKind) {
	ev := Event{Kind: kind, State: m.State()}
	for _, fn := range m.listeners {
		fn(ev)
	}
}

// ParseChainID decodes a hex encoded chain id ("0x7a69") into its integer value.
func ParseChainID(s string) (uint64, error) {
	id, err := hexutil.DecodeUint64(s)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id %q: %w", s, err)
	}
	return id, nil
}
