package main

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"raffle-tui/config"
	"raffle-tui/notify"
	"raffle-tui/raffle"
	"raffle-tui/session"
	"raffle-tui/styles"
)

// -------------------- MODEL --------------------

// contractFactory binds the raffle at addr for an enabled wallet.
type contractFactory func(addr common.Address, info session.Info) (raffle.ContractClient, error)

func bindContract(addr common.Address, info session.Info) (raffle.ContractClient, error) {
	return raffle.NewBoundContract(addr, info.Backend, info.Transactor)
}

// deps is everything the model is built from.
type deps struct {
	cfg        config.Config
	configPath string

	provider  session.Provider
	store     session.Store
	registry  raffle.Registry
	contracts contractFactory

	logger    *log.Logger
	logBuffer *syncBuffer
}

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	activePage config.Page

	cfg        config.Config
	configPath string

	// wallet session
	manager        *session.Manager
	events         []session.Event
	accountChanges chan session.AccountChange
	accountSub     event.Subscription

	// raffle panel
	panel         *raffle.Panel
	contracts     contractFactory
	client        raffle.ContractClient
	confirmations uint64
	lastTx        *common.Hash
	// gen bumps on every session edge; async results from an older session are dropped
	gen int

	tray *notify.Tray

	spin spinner.Model

	// clipboard feedback
	copiedMsg string

	// pay-by-phone panel
	showPayment bool
	paymentURI  string
	paymentQR   string

	// passphrase prompt
	passForm *huh.Form

	// networks page
	selectedRPCIdx int

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logBuffer   *syncBuffer
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model
}

// syncBuffer backs the log panel. Components log from their own goroutines.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func (s *syncBuffer) Reset() {
	s.mu.Lock()
	s.b.Reset()
	s.mu.Unlock()
}

// newLogger returns the logger every component writes to. Its output is shown
// in the log panel.
func newLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "",
	})
	logger.SetLevel(log.DebugLevel)
	logger.SetStyles(&log.Styles{
		Timestamp: lipgloss.NewStyle().Foreground(cMuted),
		Caller:    lipgloss.NewStyle().Faint(true),
		Prefix:    lipgloss.NewStyle().Bold(true).Foreground(cAccent2),
		Message:   lipgloss.NewStyle().Foreground(cText),
		Key:       lipgloss.NewStyle().Foreground(cAccent),
		Value:     lipgloss.NewStyle().Foreground(cText),
		Separator: lipgloss.NewStyle().Faint(true),
		Levels: map[log.Level]lipgloss.Style{
			log.DebugLevel: lipgloss.NewStyle().Foreground(cMuted).SetString("DEBUG"),
			log.InfoLevel:  lipgloss.NewStyle().Foreground(cAccent2).SetString("INFO"),
			log.WarnLevel:  lipgloss.NewStyle().Foreground(cWarn).SetString("WARN"),
			log.ErrorLevel: lipgloss.NewStyle().Foreground(styles.CError).SetString("ERROR"),
		},
	})
	return logger
}

// -------------------- INIT --------------------

// newModel wires the session manager, the raffle panel and the notification
// tray.
func newModel(d deps) *model {
	if d.logBuffer == nil {
		d.logBuffer = &syncBuffer{}
	}
	if d.logger == nil {
		d.logger = newLogger(d.logBuffer)
	}
	if d.contracts == nil {
		d.contracts = bindContract
	}
	if d.registry == nil {
		d.registry = raffle.DefaultRegistry()
	}
	confirmations := d.cfg.Confirmations
	if confirmations == 0 {
		confirmations = 1
	}

	// spinner
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	// Initialize log viewport
	vp := viewport.New(0, 20) // resized on the first WindowSizeMsg
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	m := &model{
		activePage:     config.PageRaffle,
		cfg:            d.cfg,
		configPath:     d.configPath,
		manager:        session.NewManager(d.provider, d.store),
		accountChanges: make(chan session.AccountChange, 4),
		panel:          raffle.NewPanel(d.registry),
		contracts:      d.contracts,
		confirmations:  confirmations,
		tray:           notify.NewTray(notify.DefaultTTL),
		spin:           sp,
		selectedRPCIdx: activeRPCIdx(d.cfg),
		logEnabled:     d.cfg.Logger,
		logger:         d.logger,
		logBuffer:      d.logBuffer,
		logViewport:    vp,
		logSpinner:     logSpin,
	}

	m.manager.Subscribe(func(ev session.Event) {
		m.events = append(m.events, ev)
	})
	// registered once for the lifetime of the program
	m.accountSub = d.provider.SubscribeAccountChanges(m.accountChanges)

	return m
}

func activeRPCIdx(cfg config.Config) int {
	for i, r := range cfg.RPCURLs {
		if r.Active {
			return i
		}
	}
	return 0
}

// Init implements tea.Model interface and returns initial commands
func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, listenAccountChanges(m.accountChanges), startup()}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	return tea.Batch(cmds...)
}
