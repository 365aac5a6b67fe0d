package networks

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"raffle-tui/config"
	"raffle-tui/styles"
)

// Nav returns the navigation bar for the networks view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("↑/↓") + " select",
		styles.Key("Enter") + " activate",
		styles.Key("l") + " debug log",
		styles.Key("Esc") + " back",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}

// Render renders the configured RPC endpoints. envOverride is the
// RAFFLE_RPC_URL in effect, if any.
func Render(rpcURLs []config.RPCUrl, selectedIdx int, envOverride string) string {
	h := styles.TitleStyle.Render("Networks")

	lines := []string{h, ""}

	if envOverride != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.CWarn).Render("RAFFLE_RPC_URL overrides the list: "+envOverride), "")
	}

	if len(rpcURLs) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.CMuted).Render("No RPC URLs configured."))
		lines = append(lines, "")
		lines = append(lines, lipgloss.NewStyle().Foreground(styles.CMuted).Render("Add one to rpc_urls in the config file or set ETH_RPC_URL."))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, lipgloss.NewStyle().Foreground(styles.CMuted).Render("Configured RPC Endpoints:"))
	lines = append(lines, "")

	for i, rpc := range rpcURLs {
		var marker string
		if rpc.Active {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent).Render("● ")
		} else {
			marker = lipgloss.NewStyle().Foreground(styles.CMuted).Render("○ ")
		}

		nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
		urlStyle := lipgloss.NewStyle().Foreground(styles.CMuted)

		if i == selectedIdx {
			nameStyle = nameStyle.Background(styles.CPanel).Foreground(styles.CAccent2).Bold(true)
			urlStyle = urlStyle.Background(styles.CPanel)
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
		}

		lines = append(lines, marker+nameStyle.Render(rpc.Name))
		lines = append(lines, "  "+urlStyle.Render(rpc.URL))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
