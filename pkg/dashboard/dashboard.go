/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dashboard.go
Description: Live terminal dashboard showing round/miscompilation/crash
counts and per-mutator stats while cmd/jonmfuzz run --dashboard is active.
Adapts the teacher's HTML pkg/reporting dashboard concept into a Bubble
Tea TUI, grounded on the gooze example repo's bubbletea/lipgloss usage
(internal/controller/tui.go). Never imported by pkg/engine itself; run
--dashboard feeds it only ReportRound events.
*/

package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rsolene/jonm-fuzzer/pkg/engine"
	"github.com/rsolene/jonm-fuzzer/pkg/il"
	"github.com/rsolene/jonm-fuzzer/pkg/runner"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	miscoStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// roundMsg reports one completed round's counters.
type roundMsg struct {
	miscompilations int
	crashes         int
}

// mutatorStatMsg updates one mutator's running totals.
type mutatorStatMsg struct {
	name              string
	failedToGenerate  int64
	addedInstructions int64
}

// Dashboard wraps a running *tea.Program and implements both
// engine.MiscompilationReporter and engine.CrashReporter, translating
// engine callbacks into tea.Msg sends so pkg/engine never needs to know a
// TUI exists.
type Dashboard struct {
	program *tea.Program
}

// New starts the dashboard's Bubble Tea program in the background and
// returns a handle to feed it engine events. Call Stop to tear it down.
func New() *Dashboard {
	program := tea.NewProgram(newModel(), tea.WithAltScreen())
	d := &Dashboard{program: program}
	go program.Run() //nolint: errcheck // the dashboard is best-effort and never blocks the engine
	return d
}

// Stop quits the dashboard's Bubble Tea program.
func (d *Dashboard) Stop() { d.program.Quit() }

// ReportMiscompilation implements engine.MiscompilationReporter.
func (d *Dashboard) ReportMiscompilation(m engine.Miscompilation) {
	d.program.Send(roundMsg{miscompilations: 1})
}

// ReportCrash implements engine.CrashReporter.
func (d *Dashboard) ReportCrash(p *il.Program, exec *runner.Execution) {
	d.program.Send(roundMsg{crashes: 1})
}

// ReportMutatorStats pushes one mutator's current snapshot (failedToGenerate,
// addedInstructions) to the live view. Nothing in cmd/jonmfuzz calls it.
func (d *Dashboard) ReportMutatorStats(name string, failedToGenerate, addedInstructions int64) {
	d.program.Send(mutatorStatMsg{name: name, failedToGenerate: failedToGenerate, addedInstructions: addedInstructions})
}

// ReportRound marks one completed round, independent of whether it produced
// a miscompilation or crash.
func (d *Dashboard) ReportRound() {
	d.program.Send(roundMsg{})
}

type mutatorRow struct {
	failedToGenerate  int64
	addedInstructions int64
}

type model struct {
	rounds          int
	miscompilations int
	crashes         int
	mutators        map[string]mutatorRow
	order           []string
	cleanBar        progress.Model
}

func newModel() model {
	return model{
		mutators: map[string]mutatorRow{},
		cleanBar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" || msg.String() == "esc" {
			return m, tea.Quit
		}
	case roundMsg:
		m.rounds++
		m.miscompilations += msg.miscompilations
		m.crashes += msg.crashes
	case mutatorStatMsg:
		if _, ok := m.mutators[msg.name]; !ok {
			m.order = append(m.order, msg.name)
		}
		m.mutators[msg.name] = mutatorRow{failedToGenerate: msg.failedToGenerate, addedInstructions: msg.addedInstructions}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("JoNM Fuzzer — Live Dashboard"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("Rounds:"), m.rounds)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Miscompilations:"), miscoStyle.Render(fmt.Sprintf("%d", m.miscompilations)))
	fmt.Fprintf(&b, "%s %d\n\n", labelStyle.Render("Crashes:"), m.crashes)

	cleanRatio := 1.0
	if m.rounds > 0 {
		cleanRatio = 1.0 - float64(m.miscompilations)/float64(m.rounds)
	}
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("Clean rounds:"), m.cleanBar.ViewAs(cleanRatio))

	b.WriteString(labelStyle.Render("Mutators:"))
	b.WriteString("\n")
	for _, name := range m.order {
		row := m.mutators[name]
		fmt.Fprintf(&b, "  %-28s failed=%-6d added=%d\n", name, row.failedToGenerate, row.addedInstructions)
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}
