// Package tui renders the live progress of an ingestion run and its final
// report in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/stevedore/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/stevedore/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/stevedore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/stevedore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driving"
)

// DefaultPollInterval is how often the progress view asks for the run status.
const DefaultPollInterval = 500 * time.Millisecond

// StatusFunc returns the counters of the running ingestion.
type StatusFunc func(ctx context.Context) (*domain.RunStatus, error)

// Progress is the Bubbletea model of a running ingestion.
type Progress struct {
	ctx      context.Context
	cancel   context.CancelFunc
	status   StatusFunc
	interval time.Duration

	target string
	index  string

	styles    *styles.Styles
	keymap    *keymap.KeyMap
	spinner   spinner.Model
	bar       progress.Model
	statusBar *status.Bar

	last    *domain.RunStatus
	details bool

	finished bool
	report   *domain.RunReport
	err      error
}

// NewProgress creates the progress model. cancel is called when the operator
// asks to stop; the model keeps running until the run reports back.
func NewProgress(ctx context.Context, cancel context.CancelFunc, statusFn StatusFunc, target, index string) *Progress {
	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	theme := s.Theme()

	return &Progress{
		ctx:      ctx,
		cancel:   cancel,
		status:   statusFn,
		interval: DefaultPollInterval,
		target:   target,
		index:    index,
		styles:   s,
		keymap:   km,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(s.Title),
		),
		bar: progress.New(
			progress.WithGradient(string(theme.Primary), string(theme.Secondary)),
			progress.WithWidth(50),
		),
		statusBar: status.NewBar(s, km),
	}
}

// Init starts the spinner and the first status poll.
func (m *Progress) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll())
}

func (m *Progress) poll() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		st, err := m.status(m.ctx)
		return messages.StatusPolled{Status: st, Err: err}
	})
}

// Update handles key presses, window resizes, status polls and the run's end.
func (m *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())

	case tea.WindowSizeMsg:
		w := msg.Width - 4
		if w > 80 {
			w = 80
		}
		if w > 10 {
			m.bar.Width = w
		}
		m.statusBar.SetWidth(msg.Width)
		return m, nil

	case messages.StatusPolled:
		if m.finished {
			return m, nil
		}
		if msg.Err == nil && msg.Status != nil {
			m.last = msg.Status
			m.statusBar.SetErrorCount(msg.Status.ErrorCount)
			if m.statusBar.State() == status.StateStarting && msg.Status.Running {
				m.statusBar.SetState(status.StateRunning)
			}
		}
		return m, m.poll()

	case messages.RunFinished:
		m.finished = true
		m.report = msg.Report
		m.err = msg.Err
		if msg.Err != nil {
			m.statusBar.SetState(status.StateFailed)
			m.statusBar.SetMessage(msg.Err.Error())
		} else {
			m.statusBar.SetState(status.StateDone)
			if msg.Report != nil {
				m.statusBar.SetErrorCount(msg.Report.ErrorCount)
			}
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Progress) handleKey(k string) tea.Cmd {
	switch {
	case keymap.Matches(k, m.keymap.Quit):
		if m.statusBar.State() == status.StateCancelling {
			// Second press: stop waiting for the pipeline to drain.
			return tea.Quit
		}
		m.statusBar.SetState(status.StateCancelling)
		m.cancel()
	case keymap.Matches(k, m.keymap.Details):
		m.details = !m.details
	}
	return nil
}

// View renders the spinner, the commit ratio and the counters.
func (m *Progress) View() string {
	var b strings.Builder

	head := fmt.Sprintf("Ingesting %s into %s", m.target, m.index)
	if m.finished {
		b.WriteString(m.styles.Title.Render(head))
	} else {
		b.WriteString(m.spinner.View() + " " + m.styles.Title.Render(head))
	}
	b.WriteString("\n\n")

	st := m.last
	if m.report != nil {
		st = &domain.RunStatus{
			RunID:            m.report.ID,
			Progress:         m.report.Progress,
			RecordsBuilt:     m.report.RecordsBuilt,
			RecordsCommitted: m.report.RecordsCommitted,
			ErrorCount:       m.report.ErrorCount,
		}
	}
	b.WriteString("  " + m.bar.ViewAs(messages.Ratio(st)) + "\n")

	if st != nil {
		b.WriteString("  " + m.styles.Muted.Render(fmt.Sprintf(
			"%d processed · %d built · %d committed",
			st.Progress, st.RecordsBuilt, st.RecordsCommitted)) + "\n")
		if m.details && st.RunID != "" {
			b.WriteString("  " + m.styles.Muted.Render("run "+st.RunID) + "\n")
		}
	}

	b.WriteString("\n" + m.statusBar.View() + "\n")
	return b.String()
}

// Report returns the finished run's report, or nil while running.
func (m *Progress) Report() *domain.RunReport {
	return m.report
}

// Err returns the run's setup error, if any.
func (m *Progress) Err() error {
	return m.err
}

// RunProgress runs the ingestion of target while showing the progress view.
// Pressing q cancels the run's context.
func RunProgress(
	ctx context.Context,
	ingester driving.Ingester,
	target domain.Target,
	index string,
	opts ...tea.ProgramOption,
) (*domain.RunReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewProgress(ctx, cancel, ingester.Status, target.Raw, index)
	program := tea.NewProgram(model, opts...)

	done := make(chan messages.RunFinished, 1)
	go func() {
		report, err := ingester.Ingest(ctx, target)
		res := messages.RunFinished{Report: report, Err: err}
		done <- res
		program.Send(res)
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("progress view: %w", err)
	}

	res := <-done
	return res.Report, res.Err
}
