package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/trajstore/internal/config"
	"github.com/san-kum/trajstore/internal/fstore"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

const historyWindow = 120

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type watchModel struct {
	store  *fstore.Store
	cfg    *config.Config
	target int

	count   int
	history []float64
	err     error

	width  int
	height int
}

// NewWatch builds the live dataset view. The target line comes from the
// acquisition mode when it implies one (generation population or dynamic
// minimum); import mode has no target.
func NewWatch(cfg *config.Config) tea.Model {
	target := 0
	if cfg.Generation != nil {
		target = cfg.Generation.Population
	} else if cfg.DynamicMinimum != nil {
		target = *cfg.DynamicMinimum
	}
	return watchModel{
		store:  fstore.New(cfg.Storage),
		cfg:    cfg,
		target: target,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		n, err := m.store.TrajectoryCount()
		m.err = err
		if err == nil {
			m.count = n
			m.history = append(m.history, float64(n))
			if len(m.history) > historyWindow {
				m.history = m.history[1:]
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(cyan.Render("trajstore watch") + "  " +
		dim.Render(m.store.Root()) + "\n\n")

	if m.err != nil {
		b.WriteString(yellow.Render(fmt.Sprintf("count error: %v", m.err)) + "\n")
	}

	countLine := fmt.Sprintf("trajectories on disk: %d", m.count)
	if m.target > 0 {
		countLine += fmt.Sprintf(" / %d", m.target)
		if m.count >= m.target {
			countLine += "  " + green.Render("target met")
		}
	}
	b.WriteString(white.Render(countLine) + "\n\n")

	if len(m.history) > 1 {
		width := m.width - 12
		if width < 20 {
			width = 60
		}
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(10),
			asciigraph.Width(width),
			asciigraph.Caption("population over time"),
		) + "\n\n")
	} else {
		b.WriteString(dim.Render("collecting samples...") + "\n\n")
	}

	b.WriteString(dim.Render(fmt.Sprintf(
		"split forecast  train %d  valid %d  test %d",
		forecast(m.count, m.cfg.TrainFraction),
		forecast(m.count, m.cfg.ValidFraction),
		forecast(m.count, m.cfg.TestFraction),
	)) + "\n\n")

	b.WriteString(dim.Render("q: quit") + "\n")
	return b.String()
}

func forecast(n int, fraction float64) int {
	return int(math.Round(float64(n) * fraction))
}

// Run blocks on the watch UI until the user quits.
func Run(cfg *config.Config) error {
	p := tea.NewProgram(NewWatch(cfg))
	_, err := p.Run()
	return err
}
