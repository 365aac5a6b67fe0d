// Package notify is the user notification surface: short-lived toasts shown
// over the main view.
package notify

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"raffle-tui/styles"
)

// Kind is the notification severity.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Position is where a toast is anchored.
type Position string

const (
	TopRight    Position = "topR"
	TopLeft     Position = "topL"
	BottomRight Position = "bottomR"
	BottomLeft  Position = "bottomL"
)

// Notification is a fire-and-forget message to the user.
type Notification struct {
	Kind     Kind
	Message  string
	Title    string
	Position Position
	Icon     string
}

// Dispatcher accepts notifications.
type Dispatcher interface {
	Dispatch(n Notification)
}

// DefaultTTL is how long a toast stays on screen.
const DefaultTTL = 5 * time.Second

type toast struct {
	Notification
	expires time.Time
}

// Tray keeps the toasts currently on screen.
type Tray struct {
	ttl   time.Duration
	now   func() time.Time
	items []toast
}

// NewTray returns a tray whose toasts expire after ttl.
func NewTray(ttl time.Duration) *Tray {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tray{ttl: ttl, now: time.Now}
}

// Dispatch implements Dispatcher.
func (t *Tray) Dispatch(n Notification) {
	if n.Kind == "" {
		n.Kind = KindInfo
	}
	if n.Position == "" {
		n.Position = TopRight
	}
	t.items = append(t.items, toast{Notification: n, expires: t.now().Add(t.ttl)})
}

// TTL returns the lifetime of a toast.
func (t *Tray) TTL() time.Duration { return t.ttl }

// Expire drops every toast that has outlived its ttl.
func (t *Tray) Expire() {
	now := t.now()
	kept := t.items[:0]
	for _, it := range t.items {
		if now.Before(it.expires) {
			kept = append(kept, it)
		}
	}
	t.items = kept
}

// Active returns the notifications currently shown, oldest first.
func (t *Tray) Active() []Notification {
	out := make([]Notification, 0, len(t.items))
	for _, it := range t.items {
		out = append(out, it.Notification)
	}
	return out
}

// Len returns the number of toasts on screen.
func (t *Tray) Len() int { return len(t.items) }

var icons = map[string]string{
	"bell":      "🔔",
	"checkmark": "✓",
	"info":      "ℹ",
	"xCircle":   "✗",
}

func kindColor(k Kind) lipgloss.Color {
	switch k {
	case KindSuccess:
		return styles.CAccent
	case KindWarning:
		return styles.CWarn
	case KindError:
		return styles.CError
	}
	return styles.CAccent2
}

// Render draws the toasts as a vertical stack.
func (t *Tray) Render(width int) string {
	if len(t.items) == 0 {
		return ""
	}
	var boxes []string
	for _, it := range t.items {
		icon := icons[it.Icon]
		if icon == "" {
			icon = it.Icon
		}
		title := lipgloss.NewStyle().Foreground(kindColor(it.Kind)).Bold(true).Render(strings.TrimSpace(icon + " " + it.Title))
		body := lipgloss.NewStyle().Foreground(styles.CText).Render(it.Message)
		box := lipgloss.NewStyle().
			Background(styles.CPanel).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(kindColor(it.Kind)).
			Padding(0, 1).
			Width(width).
			Render(title + "\n" + body)
		boxes = append(boxes, box)
	}
	return lipgloss.JoinVertical(lipgloss.Left, boxes...)
}
