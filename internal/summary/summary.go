// Package summary renders the outcome of a launch for a terminal.
package summary

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/vk/armstack/internal/executor"
)

// Printer writes launch summaries. Colour is decided by the destination.
type Printer struct {
	w     io.Writer
	title lipgloss.Style
	ok    lipgloss.Style
	bad   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

// New creates a Printer writing to w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:     w,
		title: r.NewStyle().Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		bad:   r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true),
		muted: r.NewStyle().Foreground(lipgloss.Color("#999999")),
	}
}

// Launch writes one line per process followed by the failure details.
func (p *Printer) Launch(res *executor.LaunchResult) error {
	var b strings.Builder

	headline := fmt.Sprintf("Launch %s in %s (exit %d)", res.Status, res.Duration.Round(time.Millisecond), res.Status.ExitCode())
	b.WriteString(p.statusStyle(res.Status).Render(headline))
	b.WriteString("\n")

	nameWidth, stateWidth := 0, 0
	for _, pr := range res.Processes {
		nameWidth = max(nameWidth, len(pr.Name))
		stateWidth = max(stateWidth, len(pr.State.String()))
	}

	for _, pr := range res.Processes {
		style := p.stateStyle(pr.State)
		line := fmt.Sprintf("  %s %-*s  %s", style.Render(mark(pr.State)), nameWidth, pr.Name,
			style.Render(fmt.Sprintf("%-*s", stateWidth, pr.State)))
		if pr.PID > 0 {
			line += p.muted.Render(fmt.Sprintf("  pid %d", pr.PID))
		}
		if !pr.Critical {
			line += p.muted.Render("  (optional)")
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}

	if failures := res.Failures(); len(failures) > 0 {
		b.WriteString("\n")
		b.WriteString(p.title.Render("Failures:"))
		b.WriteString("\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "  - %s\n", f.Err)
		}
	}

	var cancelled *executor.CancelledError
	if errors.As(res.Err, &cancelled) {
		b.WriteString("\n")
		b.WriteString(p.warn.Render(cancelled.Error()))
		b.WriteString("\n")
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}

// Aborted reports a launch that failed before any process was started.
func (p *Printer) Aborted(err error) error {
	var b strings.Builder
	b.WriteString(p.bad.Render("Launch aborted before starting any process"))
	b.WriteString("\n")
	for _, e := range flatten(err) {
		fmt.Fprintf(&b, "  - %s\n", e)
	}
	_, werr := io.WriteString(p.w, b.String())
	return werr
}

// flatten expands joined errors one level so each gets its own line.
func flatten(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func mark(s executor.State) string {
	switch s {
	case executor.Running:
		return "✔"
	case executor.Failed:
		return "✘"
	case executor.DependencyFailed:
		return "⊘"
	case executor.Cancelled, executor.Stopped:
		return "■"
	default:
		return "·"
	}
}

func (p *Printer) stateStyle(s executor.State) lipgloss.Style {
	switch s {
	case executor.Running:
		return p.ok
	case executor.Failed, executor.DependencyFailed:
		return p.bad
	case executor.Cancelled, executor.Stopped:
		return p.warn
	default:
		return p.muted
	}
}

func (p *Printer) statusStyle(s executor.Status) lipgloss.Style {
	switch s {
	case executor.StatusSucceeded:
		return p.ok
	case executor.StatusPartial, executor.StatusCancelled:
		return p.warn
	default:
		return p.bad
	}
}
