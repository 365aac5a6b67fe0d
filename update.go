package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"raffle-tui/config"
	"raffle-tui/helpers"
	"raffle-tui/raffle"
	"raffle-tui/rpc"
	"raffle-tui/session"
	"raffle-tui/wallet"
)

// -------------------- UPDATE --------------------

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var formCmd tea.Cmd

	// The passphrase form owns the keyboard while it is open
	if m.passForm != nil {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" {
			m.passForm = nil
			err := m.manager.Complete(session.Info{}, errPassphraseCancelled)
			m.addLog("warning", "Connect cancelled", "reason", err)
			return m, m.drainSessionEvents()
		}

		form, cmd := m.passForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.passForm = f
			if f.State == huh.StateCompleted {
				if setter, ok := m.manager.Provider().(wallet.PassphraseSetter); ok {
					setter.SetPassphrase(tempPassphrase)
				}
				tempPassphrase = ""
				m.passForm = nil
				return m, enableWallet(m.manager)
			}
		}
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, cmd
		}
		formCmd = cmd
	}

	m2, cmd := m.update(msg)
	return m2, tea.Batch(formCmd, cmd)
}

func (m *model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case startupMsg:
		return m, m.reconnect()

	case logInitMsg:
		if !m.logEnabled {
			return m, nil
		}
		m.logReady = true
		m.addLog("info", "Logger enabled")
		return m, nil

	case walletEnabledMsg:
		if err := m.manager.Complete(msg.info, msg.err); err != nil {
			switch {
			case errors.Is(err, keystore.ErrDecrypt):
				m.addLog("warning", "Wrong passphrase, press c to try again")
			case errors.Is(err, session.ErrAccountGone):
				m.addLog("warning", "Wallet reported no account, connect cancelled")
			case errors.Is(err, wallet.ErrPassphraseRequired):
				m.addLog("warning", "Keystore is locked, press c to enter the passphrase")
			default:
				m.addLog("error", "Wallet enable failed", "err", err)
			}
		}
		return m, m.drainSessionEvents()

	case accountChangedMsg:
		if msg.change.Account == nil {
			m.addLog("warning", "Wallet reported no account")
		} else {
			m.addLog("info", "Account changed", "account", helpers.ShortenAddr(msg.change.Account.Hex()))
		}
		if err := m.manager.AccountChanged(msg.change.Account); err != nil {
			m.addLog("error", "Account change handling failed", "err", err)
		}
		return m, tea.Batch(m.drainSessionEvents(), listenAccountChanges(m.accountChanges))

	case raffleRefreshedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		again := m.panel.EndRefresh(msg.view, msg.err)
		if msg.err != nil {
			m.addLog("error", "Failed to read raffle state", "err", msg.err)
		} else {
			m.addLog("debug", "Raffle state loaded",
				"fee", msg.view.EntranceFee,
				"players", msg.view.NumberOfPlayers,
				"winner", helpers.ShortenAddr(msg.view.RecentWinner))
		}
		if again {
			return m, m.startRefresh()
		}
		return m, nil

	case raffleSubmittedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			m.panel.EndSubmit(common.Hash{}, msg.err)
			m.addLog("error", "Enter raffle failed", "err", msg.err)
			return m, nil
		}
		hash := msg.tx.Hash()
		m.panel.EndSubmit(hash, nil)
		m.lastTx = &hash
		m.addLog("info", "Entry submitted", "tx", hash.Hex())
		return m, waitConfirmation(msg.tx, m.confirmations, m.gen)

	case raffleConfirmedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.panel.Confirmed(msg.hash)
		if msg.err != nil {
			m.addLog("error", "Entry failed", "tx", msg.hash.Hex(), "err", msg.err)
			return m, nil
		}
		if msg.receipt != nil && msg.receipt.Status != types.ReceiptStatusSuccessful {
			m.addLog("error", "Entry reverted", "tx", msg.hash.Hex())
			return m, nil
		}
		m.addLog("success", "Entry confirmed", "tx", msg.hash.Hex())
		m.tray.Dispatch(entryNotification)
		return m, tea.Batch(m.startRefresh(), expireToasts(m.tray.TTL()))

	case toastExpireMsg:
		m.tray.Expire()
		return m, nil

	case clipboardCopiedMsg:
		if msg.err != nil {
			m.addLog("error", "Clipboard copy failed", "err", msg.err)
			return m, nil
		}
		m.copiedMsg = "Copied " + msg.what
		m.addLog("info", "Copied "+msg.what+" to clipboard")
		return m, clearClipboardMsg()

	case clearCopiedMsg:
		m.copiedMsg = ""
		return m, nil

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		if m.logEnabled {
			// Width accounts for border and padding
			m.logViewport.Width = max(0, msg.Width-6)
			m.updateLogViewport()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		var cmds []tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		// Update log spinner too if log is enabled but not ready
		if m.logEnabled && !m.logReady {
			m.logSpinner, cmd = m.logSpinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if m.logEnabled && m.logReady {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m *model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The payment panel is modal
	if m.showPayment {
		switch msg.String() {
		case "esc", "enter", "p":
			m.showPayment = false
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	// global keys
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "l", "L":
		m.logEnabled = !m.logEnabled
		m.cfg.Logger = m.logEnabled
		enabled := m.logEnabled
		m.saveConfig(func(c *config.Config) { c.Logger = enabled })
		if m.logEnabled {
			if m.w > 0 {
				m.logViewport.Width = m.w - 6
			}
			m.logReady = false
			return m, tea.Batch(initLogViewport(), m.logSpinner.Tick)
		}
		// Clear logs and de-initialize when disabling
		m.logBuffer.Reset()
		m.logReady = false
		return m, nil

	case "pageup", "pagedown":
		if m.logEnabled && m.logReady {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	// page-specific behavior
	switch m.activePage {
	case config.PageRaffle:
		switch msg.String() {
		case "esc":
			return m, tea.Quit

		case "c", "C":
			return m, m.connect()

		case "e", "E", "enter":
			return m, m.startEnter()

		case "r", "R":
			if m.client == nil {
				return m, nil
			}
			m.addLog("info", "Refreshing raffle state")
			return m, m.startRefresh()

		case "p", "P":
			addr, ok := m.panel.Address()
			if !ok || !m.manager.State().IsConnected {
				m.addLog("warning", "No raffle to pay")
				return m, nil
			}
			m.paymentURI = raffle.PaymentURI(addr, m.panel.ChainID(), m.panel.View().EntranceFee)
			m.paymentQR = rpc.GenerateQRCode(m.paymentURI)
			m.showPayment = true
			m.addLog("info", "Payment URI", "uri", m.paymentURI)
			return m, nil

		case "y", "Y":
			if m.lastTx != nil {
				return m, copyToClipboard(m.lastTx.Hex(), "tx hash")
			}
			if addr, ok := m.panel.Address(); ok {
				return m, copyToClipboard(addr.Hex(), "raffle address")
			}
			return m, nil

		case "n", "N":
			m.activePage = config.PageNetworks
			m.selectedRPCIdx = activeRPCIdx(m.cfg)
			return m, nil
		}

	case config.PageNetworks:
		switch msg.String() {
		case "esc", "backspace":
			m.activePage = config.PageRaffle
			return m, nil

		case "up", "k":
			if m.selectedRPCIdx > 0 {
				m.selectedRPCIdx--
			}
			return m, nil

		case "down", "j":
			if m.selectedRPCIdx < len(m.cfg.RPCURLs)-1 {
				m.selectedRPCIdx++
			}
			return m, nil

		case "enter", " ":
			return m, m.activateNetwork(m.selectedRPCIdx)
		}
	}

	return m, nil
}

// activateNetwork switches the RPC endpoint and re-establishes the session on
// it when the wallet was connected before.
func (m *model) activateNetwork(idx int) tea.Cmd {
	if m.manager.Status() == session.Enabling {
		m.addLog("warning", "Wait for the wallet to finish connecting")
		return nil
	}
	if !m.cfg.Activate(idx) {
		return nil
	}
	active := m.cfg.RPCURLs[idx]
	m.saveConfig(func(c *config.Config) { c.ActivateURL(active.URL) })

	m.addLog("success", fmt.Sprintf("Activated network `%s`", active.Name), "url", active.URL)
	m.activePage = config.PageRaffle

	if setter, ok := m.manager.Provider().(wallet.EndpointSetter); ok {
		setter.SetRPCURL(active.URL)
	}

	if err := m.manager.Deactivate(); err != nil {
		m.addLog("error", "Failed to close the previous session", "err", err)
	}
	return tea.Batch(m.drainSessionEvents(), m.reconnect())
}
