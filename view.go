package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"raffle-tui/config"
	"raffle-tui/helpers"
	"raffle-tui/session"
	"raffle-tui/styles"
	"raffle-tui/views/account"
	logview "raffle-tui/views/log"
	"raffle-tui/views/networks"
	raffleview "raffle-tui/views/raffle"
)

// -------------------- VIEW --------------------

func (m *model) renderPaymentPanel() string {
	contentWidth := max(0, m.w-8)
	centered := lipgloss.NewStyle().Width(contentWidth).Align(lipgloss.Center).Render(raffleview.RenderPayment(m.paymentURI, m.paymentQR))
	content := panelStyle.Width(max(0, m.w-4)).Render(centered)
	return appStyle.Render(lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		content,
	))
}

func (m *model) globalHeader() string {
	availableWidth := max(0, m.w-8) // Account for panel padding

	state := m.manager.State()
	addrDisplay := account.Render(state, m.spin.View())
	if chain := account.Chain(state); chain != "" {
		addrDisplay += " " + chain
	}

	// RPC status dot
	var statusIcon, statusText string
	var statusColor lipgloss.Color

	active, hasRPC := m.cfg.ActiveRPC()
	switch {
	case !hasRPC:
		statusIcon = "○"
		statusColor = styles.CError
		statusText = "No RPC"
	case state.IsEnabling:
		statusIcon = "○"
		statusColor = cWarn
		statusText = "Connecting..."
	case state.IsConnected:
		statusIcon = "●"
		statusColor = cAccent
		statusText = active.Name
	default:
		statusIcon = "○"
		statusColor = cMuted
		statusText = active.Name
	}

	rpcDisplay := lipgloss.NewStyle().
		Foreground(statusColor).
		Bold(true).
		Render(statusIcon + " " + statusText)

	titleText := lipgloss.NewStyle().
		Foreground(cAccent).
		Bold(true).
		Render(helpers.FadeString("raffle", "#7EE787", "#82CFFD"))

	addrWidth := lipgloss.Width(addrDisplay)
	rpcWidth := lipgloss.Width(rpcDisplay)
	titleWidth := lipgloss.Width(titleText)
	totalOtherWidth := addrWidth + rpcWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		// Not enough space, stack vertically
		headerLine = addrDisplay + "\n" + titleText + "\n" + rpcDisplay
	} else {
		// Three-column layout: Account | Title (centered) | RPC
		remainingSpace := availableWidth - totalOtherWidth
		leftPadding := remainingSpace / 2
		rightPadding := remainingSpace - leftPadding

		headerLine = addrDisplay +
			strings.Repeat(" ", max(1, leftPadding)) +
			titleText +
			strings.Repeat(" ", max(1, rightPadding)) +
			rpcDisplay
	}

	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

func (m *model) View() string {
	if m.showPayment {
		return m.renderPaymentPanel()
	}

	headerPanel := panelStyle.Width(max(0, m.w-2)).Render(m.globalHeader())

	var pageContent, nav string
	state := m.manager.State()

	switch m.activePage {
	case config.PageNetworks:
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(networks.Render(m.cfg.RPCURLs, m.selectedRPCIdx, m.cfg.RPCURL))
		nav = networks.Nav(max(0, m.w-2))

	default:
		var content string
		if m.passForm != nil {
			content = styles.TitleStyle.Render("Unlock Wallet") + "\n\n" + m.passForm.View()
		} else {
			content = m.raffleContent(state)
		}
		pageContent = panelStyle.Width(max(0, m.w-2)).Render(content)
		_, hasAddress := m.panel.Address()
		nav = raffleview.Nav(max(0, m.w-2), state.IsConnected, hasAddress)
	}

	parts := []string{headerPanel}
	if toasts := m.tray.Render(36); toasts != "" {
		parts = append(parts, lipgloss.PlaceHorizontal(max(0, m.w-2), lipgloss.Right, toasts))
	}
	parts = append(parts, pageContent, nav)

	if m.logEnabled {
		parts = append(parts, logview.Render(m.w, m.h, m.logReady, m.logSpinner.View(), m.logViewport))
	}

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m *model) raffleContent(state session.State) string {
	content := raffleview.Render(m.panel, m.canEnter(), m.spin.View(), m.copiedMsg)
	if !state.IsConnected {
		content += "\n\n" + lipgloss.NewStyle().Foreground(cMuted).Render("Press ") + styles.Key("c") +
			lipgloss.NewStyle().Foreground(cMuted).Render(" to connect your wallet.")
	}
	return content
}
