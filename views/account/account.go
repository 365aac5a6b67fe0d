package account

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"raffle-tui/helpers"
	"raffle-tui/session"
	"raffle-tui/styles"
)

// ConnectLabel is the connect affordance.
const ConnectLabel = "Connect"

// Connected renders the account line for a connected session.
func Connected(addr string) string {
	return "Connected to " + helpers.ShortenAddr(addr)
}

// Render renders the account line of the header: the shortened account when
// connected, a Connect button otherwise, greyed out while enabling.
func Render(state session.State, spinnerView string) string {
	if state.IsConnected && state.Account != nil {
		return lipgloss.NewStyle().
			Foreground(styles.CAccent2).
			Bold(true).
			Render("Connected to ") +
			helpers.FadeString(helpers.ShortenAddr(state.Account.Hex()), "#F25D94", "#EDFF82")
	}
	if state.IsEnabling {
		return styles.Button(spinnerView+" "+ConnectLabel, false)
	}
	return styles.Button(ConnectLabel, true)
}

// Chain renders the chain id of a connected session.
func Chain(state session.State) string {
	if !state.IsConnected {
		return ""
	}
	return lipgloss.NewStyle().Foreground(styles.CMuted).Render(fmt.Sprintf("chain %d", state.ChainID))
}
