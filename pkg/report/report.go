// Package report renders audit results for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-diffraction/pkg/diffraction"
)

// DefaultTop is the number of ranked candidates shown
const DefaultTop = 10

// Options controls rendering
type Options struct {
	Top   int  // ranked candidates to include, <= 0 for DefaultTop
	Quiet bool // one-line text summary
}

// Renderer writes an audit result
type Renderer interface {
	Render(w io.Writer, res *diffraction.AuditResult) error
}

// New returns the renderer for format ("text" or "json").
func New(format string, opts Options) (Renderer, error) {
	if opts.Top <= 0 {
		opts.Top = DefaultTop
	}
	switch strings.ToLower(format) {
	case "", "text":
		return &TextRenderer{opts: opts}, nil
	case "json":
		return &JSONRenderer{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// JSONRenderer writes an indented Document
type JSONRenderer struct {
	opts Options
}

// Render implements Renderer.
func (r *JSONRenderer) Render(w io.Writer, res *diffraction.AuditResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(NewDocument(res, r.opts.Top))
}

// TextRenderer writes a styled terminal report. Colors are only emitted
// when the writer is a terminal.
type TextRenderer struct {
	opts Options
}

type textStyles struct {
	title, header, label, muted, good, bad, warn, box lipgloss.Style
}

func newTextStyles(re *lipgloss.Renderer) textStyles {
	return textStyles{
		title: re.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")),
		header: re.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginTop(1),
		label: re.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(14),
		muted: re.NewStyle().
			Foreground(lipgloss.Color("#666666")),
		good: re.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00")),
		bad: re.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF0000")),
		warn: re.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")),
		box: re.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1),
	}
}

// Render implements Renderer.
func (r *TextRenderer) Render(w io.Writer, res *diffraction.AuditResult) error {
	st := newTextStyles(lipgloss.NewRenderer(w))

	if r.opts.Quiet {
		_, err := fmt.Fprintln(w, quietLine(res))
		return err
	}

	doc := NewDocument(res, r.opts.Top)
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString(st.label.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	verdict := st.bad
	if res.Verdict == diffraction.VerdictStable {
		verdict = st.good
	}

	var head strings.Builder
	head.WriteString(st.title.Render(fmt.Sprintf("Diffraction audit: %s ↔ %s", res.PoleA, res.PoleB)))
	head.WriteString("\n")
	head.WriteString(st.muted.Render(fmt.Sprintf("run %s · mode %s", res.RunID, res.Mode)))
	b.WriteString(st.box.Render(head.String()))
	b.WriteString("\n\n")

	eq := "NONE"
	if doc.Equilibrium != nil {
		eq = doc.Equilibrium.ID
	}
	row("Equilibrium", eq)
	row("Verdict", verdict.Render(string(res.Verdict))+" / "+string(res.Confidence))
	row("Axis scope", fmt.Sprintf("%s %s", res.ScopeStatus, bracket(res.ScopeAxes)))
	row("Ratio", formatRatio(res.Stability.Ratio))
	row("Balance", fmt.Sprintf("%.3f", res.Stability.Balance))
	for _, reason := range res.Stability.Reasons {
		row("", st.warn.Render(reason))
	}

	b.WriteString(st.header.Render("Candidates"))
	b.WriteByte('\n')
	if len(doc.Candidates) == 0 {
		b.WriteString(st.muted.Render("  (none)"))
		b.WriteByte('\n')
	}
	for i, c := range doc.Candidates {
		mark := " "
		if c.InScope {
			mark = "•"
		}
		fmt.Fprintf(&b, "  %2d %s %-20s S=%.6f  pa=%.6f  pb=%.6f  bal=%.3f\n",
			i+1, mark, c.ID, float64(c.Score), float64(c.PA), float64(c.PB), float64(c.Balance))
	}

	if doc.Refine != nil {
		b.WriteString(st.header.Render("Refine"))
		b.WriteByte('\n')
		row("Provisional", doc.Refine.Provisional)
		row("Scope", bracket(doc.Refine.Scope))
		row("Outcome", doc.Refine.Outcome)
	}

	if len(doc.Drift) > 0 {
		b.WriteString(st.header.Render("Drift suspects"))
		b.WriteByte('\n')
		for _, d := range doc.Drift {
			fmt.Fprintf(&b, "  %-20s %-16s S=%.6f %s\n", d.ID, d.Reason, float64(d.Score), bracket(d.Axes))
		}
	}

	if syn := doc.Synthesis; syn != nil {
		b.WriteString(st.header.Render("Synthesis"))
		b.WriteByte('\n')
		switch {
		case syn.Skipped != "":
			row("Skipped", syn.Skipped)
		case syn.Node != nil:
			row("Node", fmt.Sprintf("%s (S=%.6f)", syn.Node.ID, float64(syn.Node.Score)))
		default:
			row("Node", "NONE")
		}
		for _, rj := range syn.Rejected {
			row("Rejected", fmt.Sprintf("%s: %s", rj.ID, rj.Reason))
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString(st.header.Render("Warnings"))
		b.WriteByte('\n')
		for _, wmsg := range res.Warnings {
			b.WriteString("  ")
			b.WriteString(st.warn.Render(wmsg))
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func quietLine(res *diffraction.AuditResult) string {
	eq := "NONE"
	if res.Equilibrium != nil {
		eq = res.Equilibrium.NodeID
	}
	line := fmt.Sprintf("%s|%s -> %s %s/%s", res.PoleA, res.PoleB, eq, res.Verdict, res.Confidence)
	if res.Synthesis.Node != nil {
		line += " synthesis=" + res.Synthesis.Node.NodeID
	}
	return line
}

func formatRatio(r float64) string {
	if math.IsInf(r, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.3f", r)
}

func bracket(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
