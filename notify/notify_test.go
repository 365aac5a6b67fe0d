package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTray_DispatchAndExpire(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tray := NewTray(5 * time.Second)
	tray.now = func() time.Time { return now }

	tray.Dispatch(Notification{Message: "Transaction Complete!", Title: "Tx Notification", Icon: "bell"})
	require.Equal(t, 1, tray.Len())

	n := tray.Active()[0]
	require.Equal(t, KindInfo, n.Kind)
	require.Equal(t, TopRight, n.Position)

	now = now.Add(3 * time.Second)
	tray.Dispatch(Notification{Kind: KindWarning, Message: "second"})
	tray.Expire()
	require.Equal(t, 2, tray.Len())

	now = now.Add(3 * time.Second)
	tray.Expire()
	require.Equal(t, 1, tray.Len())
	require.Equal(t, "second", tray.Active()[0].Message)

	now = now.Add(time.Minute)
	tray.Expire()
	require.Zero(t, tray.Len())
}

func TestTray_Render(t *testing.T) {
	tray := NewTray(0)
	require.Equal(t, DefaultTTL, tray.TTL())
	require.Empty(t, tray.Render(30))

	tray.Dispatch(Notification{Message: "Transaction Complete!", Title: "Tx Notification", Icon: "bell"})
	out := tray.Render(30)
	require.True(t, strings.Contains(out, "Transaction Complete!"))
	require.True(t, strings.Contains(out, "Tx Notification"))
}
