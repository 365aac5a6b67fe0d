// Package raffle reads and enters a deployed raffle contract and keeps the
// state shown on the raffle panel.
package raffle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoAddress is returned when the active chain has no raffle deployment.
	ErrNoAddress = errors.New("raffle: no contract address for chain")
	// ErrBusy is returned while a submission or a refresh is in flight.
	ErrBusy = errors.New("raffle: call in flight")
)

// View is the contract state shown on the panel. Values are the stringified
// contract outputs.
type View struct {
	EntranceFee     string
	NumberOfPlayers string
	RecentWinner    string
}

// ZeroView is the view before the first successful refresh.
func ZeroView() View {
	return View{EntranceFee: "0", NumberOfPlayers: "0", RecentWinner: "0"}
}

// Refresh reads the entrance fee, the number of players and the recent winner
// concurrently. It returns a view only when all three reads succeed.
func Refresh(ctx context.Context, client ContractClient) (View, error) {
	var v View
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		v.EntranceFee, err = callString(ctx, client, MethodGetEntranceFee)
		return err
	})
	g.Go(func() (err error) {
		v.NumberOfPlayers, err = callString(ctx, client, MethodGetNumberOfPlayers)
		return err
	})
	g.Go(func() (err error) {
		v.RecentWinner, err = callString(ctx, client, MethodGetRecentWinner)
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}
	return v, nil
}

func callString(ctx context.Context, client ContractClient, method string) (string, error) {
	out, err := client.Call(ctx, method)
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%s: empty result", method)
	}
	return fmt.Sprint(out[0]), nil
}

// Enter submits enterRaffle paying fee wei.
func Enter(ctx context.Context, client ContractClient, fee *big.Int) (Transaction, error) {
	return client.Transact(ctx, fee, MethodEnterRaffle)
}

// PaymentURI returns an EIP-681 URI that enters the raffle from an external
// wallet.
func PaymentURI(address common.Address, chainID uint64, feeWei string) string {
	return fmt.Sprintf("ethereum:%s@%d?value=%s", address.Hex(), chainID, feeWei)
}

// Panel holds the raffle panel state. It is driven from a single event loop.
type Panel struct {
	registry Registry

	chainID uint64
	address *common.Address

	view       View
	updatedAt  time.Time
	refreshing bool
	submitting bool
	// queued is set when a refresh was requested while one was in flight
	queued bool

	pending *common.Hash
}

// NewPanel returns a panel with no active chain.
func NewPanel(registry Registry) *Panel {
	return &Panel{registry: registry, view: ZeroView()}
}

// SetChain resolves the raffle address for chainID.
func (p *Panel) SetChain(chainID uint64) {
	p.chainID = chainID
	p.address = nil
	if addr, ok := p.registry.Resolve(chainID); ok {
		p.address = &addr
	}
}

// ChainID returns the chain the panel was last resolved for.
func (p *Panel) ChainID() uint64 { return p.chainID }

// Address returns the resolved raffle address.
func (p *Panel) Address() (common.Address, bool) {
	if p.address == nil {
		return common.Address{}, false
	}
	return *p.address, true
}

// View returns the last committed contract state.
func (p *Panel) View() View { return p.view }

// UpdatedAt returns when the view was last committed.
func (p *Panel) UpdatedAt() time.Time { return p.updatedAt }

// Refreshing reports whether a refresh is in flight.
func (p *Panel) Refreshing() bool { return p.refreshing }

// Submitting reports whether an entry submission is in flight.
func (p *Panel) Submitting() bool { return p.submitting }

// Pending returns the hash of the entry awaiting confirmation.
func (p *Panel) Pending() (common.Hash, bool) {
	if p.pending == nil {
		return common.Hash{}, false
	}
	return *p.pending, true
}

// CanSubmit reports whether the enter affordance is enabled.
func (p *Panel) CanSubmit() bool {
	return p.address != nil && !p.refreshing && !p.submitting
}

// BeginRefresh marks a refresh in flight. A request made while a refresh is
// already running is queued and reported by EndRefresh.
func (p *Panel) BeginRefresh() error {
	if p.address == nil {
		return ErrNoAddress
	}
	if p.refreshing {
		p.queued = true
		return ErrBusy
	}
	p.refreshing = true
	return nil
}

// EndRefresh commits v unless err is set, in which case the previous view is
// kept. It reports whether another refresh was requested meanwhile; the
// caller is expected to start it.
func (p *Panel) EndRefresh(v View, err error) (again bool) {
	p.refreshing = false
	again, p.queued = p.queued, false
	if err != nil {
		return again
	}
	p.view = v
	p.updatedAt = time.Now()
	return again
}

// BeginSubmit marks a submission in flight and returns the fee to pay.
func (p *Panel) BeginSubmit() (*big.Int, error) {
	if p.address == nil {
		return nil, ErrNoAddress
	}
	if p.refreshing || p.submitting {
		return nil, ErrBusy
	}
	fee, err := ParseWei(p.view.EntranceFee)
	if err != nil {
		return nil, err
	}
	p.submitting = true
	return fee, nil
}

// EndSubmit settles the submission. On success hash becomes the pending
// transaction.
func (p *Panel) EndSubmit(hash common.Hash, err error) {
	p.submitting = false
	if err != nil {
		return
	}
	p.pending = &hash
}

// Confirmed clears the pending transaction if it matches hash.
func (p *Panel) Confirmed(hash common.Hash) {
	if p.pending != nil && *p.pending == hash {
		p.pending = nil
	}
}

// Reset drops the chain, the view and every in-flight marker.
func (p *Panel) Reset() {
	p.chainID = 0
	p.address = nil
	p.view = ZeroView()
	p.updatedAt = time.Time{}
	p.refreshing = false
	p.submitting = false
	p.queued = false
	p.pending = nil
}
