package raffle

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"raffle-tui/helpers"
	"raffle-tui/raffle"
	"raffle-tui/styles"
)

// NoAddressText is shown when the active chain has no deployed raffle.
const NoAddressText = "No Raffle Address detected"

// EnterLabel is the enter affordance.
const EnterLabel = "Enter Raffle"

// Nav returns the navigation bar for the raffle view
func Nav(width int, connected, hasAddress bool) string {
	keys := []string{}
	if connected {
		if hasAddress {
			keys = append(keys,
				styles.Key("e")+" enter raffle",
				styles.Key("r")+" refresh",
				styles.Key("p")+" pay by phone",
				styles.Key("y")+" copy",
			)
		}
	} else {
		keys = append(keys, styles.Key("c")+" connect")
	}
	keys = append(keys,
		styles.Key("n")+" networks",
		styles.Key("l")+" debug log",
		styles.Key("Esc")+" quit",
	)

	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}

// Render renders the raffle panel. canEnter is the combined wallet and panel
// guard; spinnerView replaces the button label while work is in flight.
func Render(p *raffle.Panel, canEnter bool, spinnerView, copiedMsg string) string {
	h := styles.TitleStyle.Render("Raffle")

	addr, ok := p.Address()
	if !ok {
		msg := lipgloss.NewStyle().Foreground(styles.CMuted).Render(NoAddressText)
		return h + "\n\n" + msg
	}

	sub := lipgloss.NewStyle().Foreground(styles.CMuted).Underline(true).Render(addr.Hex())
	if copiedMsg != "" {
		sub += "  " + lipgloss.NewStyle().Foreground(styles.CAccent).Render(copiedMsg)
	}

	label := EnterLabel
	if p.Refreshing() || p.Submitting() {
		label = spinnerView + " " + EnterLabel
	}
	button := styles.Button(label, canEnter)

	v := p.View()
	fee, err := raffle.FormatEther(v.EntranceFee)
	if err != nil {
		fee = v.EntranceFee
	}

	labelStyle := lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(styles.CText)

	lines := []string{
		h,
		sub,
		"",
		button,
		"",
		labelStyle.Render("Entrance Fee: ") + valueStyle.Render(fee+" ETH"),
		labelStyle.Render("Number of Players: ") + valueStyle.Render(v.NumberOfPlayers),
		labelStyle.Render("Recent Winner: ") + valueStyle.Render(v.RecentWinner),
		"",
		lipgloss.NewStyle().Foreground(styles.CMuted).Render("updated " + helpers.LoadedAt(p.UpdatedAt(), p.Refreshing())),
	}

	if hash, ok := p.Pending(); ok {
		lines = append(lines, "", fmt.Sprintf("%s waiting for confirmation of %s",
			spinnerView,
			lipgloss.NewStyle().Foreground(styles.CWarn).Render(helpers.ShortenAddr(hash.Hex())),
		))
	}

	return strings.Join(lines, "\n")
}

// RenderPayment renders the pay-by-phone panel: the EIP-681 URI and its QR code.
func RenderPayment(uri, qr string) string {
	h := styles.TitleStyle.Render("Enter From Your Phone (EIP-681)")
	hint := lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).Render("Scan the QR code with your wallet app • Press ESC or Enter to close")
	return h + "\n\n" + qr + "\n" + lipgloss.NewStyle().Foreground(styles.CAccent).Render(uri) + "\n\n" + hint
}
