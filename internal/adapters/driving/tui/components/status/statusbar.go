// Package status provides the status bar shown under the progress view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/stevedore/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/stevedore/internal/adapters/driving/tui/styles"
)

// State represents the phase of the run for display.
type State string

const (
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateCancelling State = "cancelling"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Bar displays the run phase, the failed document count and keybinding hints.
type Bar struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	state      State
	message    string
	errorCount int
	width      int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateStarting,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Render(left + strings.Repeat(" ", padding) + right)
}

func (s *Bar) renderLeft() string {
	var text string
	switch s.state {
	case StateRunning:
		text = s.styles.Normal.Render("Ingesting")
	case StateCancelling:
		text = s.styles.Warning.Render("Cancelling...")
	case StateDone:
		text = s.styles.Success.Render("Done")
	case StateFailed:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Failed: %s", s.message))
		}
		return s.styles.Error.Render("Failed")
	default:
		text = s.styles.Muted.Render("Starting")
	}

	if s.errorCount > 0 {
		text += s.styles.Warning.Render(fmt.Sprintf(" · %d failed", s.errorCount))
	}
	return text
}

func (s *Bar) renderRight() string {
	if s.state == StateDone || s.state == StateFailed {
		return ""
	}
	bindings := s.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Help.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the failure message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetErrorCount sets the number of failed documents so far.
func (s *Bar) SetErrorCount(count int) {
	s.errorCount = count
}

// ErrorCount returns the failed document count.
func (s *Bar) ErrorCount() int {
	return s.errorCount
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}
