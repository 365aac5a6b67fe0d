package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"raffle-tui/config"
	"raffle-tui/helpers"
	"raffle-tui/notify"
	"raffle-tui/raffle"
	"raffle-tui/rpc"
	"raffle-tui/session"
	"raffle-tui/wallet"
)

// -------------------- COMMANDS --------------------
// tea.Cmd factories for async work

var errPassphraseCancelled = errors.New("passphrase prompt cancelled")

// entryNotification is shown once per confirmed entry.
var entryNotification = notify.Notification{
	Kind:     notify.KindInfo,
	Message:  "Transaction Complete!",
	Title:    "Tx Notification",
	Position: notify.TopRight,
	Icon:     "bell",
}

func startup() tea.Cmd {
	return func() tea.Msg {
		return startupMsg{}
	}
}

func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// enableWallet runs the provider's enable off the Update loop.
func enableWallet(manager *session.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpc.DefaultTimeout)
		defer cancel()
		info, err := manager.Enable(ctx)
		return walletEnabledMsg{info: info, err: err}
	}
}

// listenAccountChanges waits for the next provider account notification.
// Update re-arms it after every message.
func listenAccountChanges(ch <-chan session.AccountChange) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return accountChangedMsg{change: change}
	}
}

func refreshRaffle(client raffle.ContractClient, gen int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpc.DefaultTimeout)
		defer cancel()
		v, err := raffle.Refresh(ctx, client)
		return raffleRefreshedMsg{view: v, err: err, gen: gen}
	}
}

// enterRaffle submits the entry. The submission and the confirmation wait
// carry no timeout of their own.
func enterRaffle(client raffle.ContractClient, fee *big.Int, gen int) tea.Cmd {
	return func() tea.Msg {
		tx, err := raffle.Enter(context.Background(), client, fee)
		return raffleSubmittedMsg{tx: tx, err: err, gen: gen}
	}
}

func waitConfirmation(tx raffle.Transaction, confirmations uint64, gen int) tea.Cmd {
	return func() tea.Msg {
		receipt, err := tx.WaitForConfirmations(context.Background(), confirmations)
		return raffleConfirmedMsg{hash: tx.Hash(), receipt: receipt, err: err, gen: gen}
	}
}

func expireToasts(after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return toastExpireMsg{}
	})
}

// copyToClipboard copies text to clipboard
func copyToClipboard(text, what string) tea.Cmd {
	return func() tea.Msg {
		return clipboardCopiedMsg{what: what, err: clipboard.WriteAll(text)}
	}
}

// clearClipboardMsg waits 2 seconds then sends a message to clear clipboard feedback
func clearClipboardMsg() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearCopiedMsg{}
	})
}

// -------------------- MODEL HELPER METHODS --------------------
// These methods help with state management and command generation

// addLog adds a log entry with timestamp and type
func (m *model) addLog(logType, message string, keyvals ...any) {
	if m.logger == nil {
		return
	}

	switch logType {
	case "info":
		m.logger.Info(message, keyvals...)
	case "success":
		m.logger.Info("✓ "+message, keyvals...)
	case "error":
		m.logger.Error(message, keyvals...)
	case "warning":
		m.logger.Warn(message, keyvals...)
	case "debug":
		m.logger.Debug(message, keyvals...)
	default:
		m.logger.Print(message, keyvals...)
	}

	m.updateLogViewport()
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logEnabled || !m.logReady || m.logBuffer == nil {
		return
	}
	m.logViewport.SetContent(m.logBuffer.String())
	m.logViewport.GotoBottom()
}

// saveConfig applies fn to the config file, logging instead of failing. Only
// what fn sets is persisted; flag and env overrides stay in memory.
func (m *model) saveConfig(fn func(*config.Config)) {
	if m.configPath == "" {
		return
	}
	if err := config.Update(m.configPath, fn); err != nil {
		m.addLog("error", "Failed to save config", "err", err)
	}
}

// beginEnable starts the provider's enable for a manager that just moved to
// Enabling, prompting for a passphrase first when the provider needs one.
func (m *model) beginEnable() tea.Cmd {
	if setter, ok := m.manager.Provider().(wallet.PassphraseSetter); ok && setter.NeedsPassphrase() {
		m.createPassphraseForm()
		return m.passForm.Init()
	}
	return enableWallet(m.manager)
}

// connect is the user-invoked connect.
func (m *model) connect() tea.Cmd {
	if err := m.manager.Connect(); err != nil {
		m.addLog("warning", "Connect refused", "reason", err)
		return nil
	}
	m.addLog("info", "Connecting wallet…")
	return m.beginEnable()
}

// reconnect enables again when the persisted flag is set and no session is
// active.
func (m *model) reconnect() tea.Cmd {
	ok, err := m.manager.TryAutoReconnect()
	if err != nil {
		m.addLog("error", "Auto-reconnect failed", "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	m.addLog("info", "Reconnecting previously connected wallet…")
	return m.beginEnable()
}

// drainSessionEvents reacts to the transitions the manager published since
// the last call.
func (m *model) drainSessionEvents() tea.Cmd {
	events := m.events
	m.events = nil

	var cmds []tea.Cmd
	for _, ev := range events {
		switch ev.Kind {
		case session.EventConnected:
			cmds = append(cmds, m.onConnected(ev.State))
		case session.EventDisconnected:
			m.onDisconnected()
		}
	}
	return tea.Batch(cmds...)
}

// onConnected binds the raffle for the new chain and loads its state.
func (m *model) onConnected(state session.State) tea.Cmd {
	m.gen++
	m.client = nil
	m.lastTx = nil
	m.panel.Reset()
	m.panel.SetChain(state.ChainID)

	m.addLog("success", "Wallet connected", "account", helpers.ShortenAddr(state.Account.Hex()), "chain", state.ChainID)

	addr, ok := m.panel.Address()
	if !ok {
		m.addLog("warning", fmt.Sprintf("No raffle deployed on chain %d", state.ChainID))
		return nil
	}

	info, _ := m.manager.Info()
	client, err := m.contracts(addr, info)
	if err != nil {
		m.addLog("error", "Failed to bind raffle contract", "address", addr.Hex(), "err", err)
		return nil
	}
	m.client = client

	return m.startRefresh()
}

func (m *model) onDisconnected() {
	m.gen++
	m.client = nil
	m.lastTx = nil
	m.panel.Reset()
	m.showPayment = false
	m.addLog("warning", "Wallet disconnected")
}

// startRefresh issues the three reads unless one is already in flight.
func (m *model) startRefresh() tea.Cmd {
	if m.client == nil {
		return nil
	}
	if err := m.panel.BeginRefresh(); err != nil {
		if errors.Is(err, raffle.ErrBusy) {
			m.addLog("debug", "Refresh queued behind the one in flight")
		} else {
			m.addLog("debug", "Refresh skipped", "reason", err)
		}
		return nil
	}
	return refreshRaffle(m.client, m.gen)
}

// canEnter combines the wallet state with the panel guards.
func (m *model) canEnter() bool {
	return m.manager.State().IsConnected && m.client != nil && m.panel.CanSubmit()
}

func (m *model) startEnter() tea.Cmd {
	if !m.manager.State().IsConnected || m.client == nil {
		m.addLog("warning", "Connect a wallet on a chain with a raffle first")
		return nil
	}
	fee, err := m.panel.BeginSubmit()
	if err != nil {
		m.addLog("warning", "Enter refused", "reason", err)
		return nil
	}
	m.addLog("info", "Entering raffle", "fee", m.panel.View().EntranceFee)
	return enterRaffle(m.client, fee, m.gen)
}

// Temporary form field storage (package-level to avoid pointer-to-copy issues)
var tempPassphrase string

func (m *model) createPassphraseForm() {
	tempPassphrase = ""

	m.passForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Keystore Passphrase").
				Description("Unlocks the keystore account for this session").
				EchoMode(huh.EchoModePassword).
				Value(&tempPassphrase),
		),
	).WithTheme(huh.ThemeCatppuccin())
}
