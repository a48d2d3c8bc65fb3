package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/resbuilder/internal/transform"
)

const (
	markOK   = "✓"
	markWarn = "⚠"
	markFail = "✗"
)

// Printer writes console progress lines and the run summary.
type Printer struct {
	w              io.Writer
	ok, warn, fail *color.Color
	dim            *color.Color
}

// NewPrinter writes to w; a nil w means color.Output (stdout, colorable).
func NewPrinter(w io.Writer, noColor bool) *Printer {
	if w == nil {
		w = color.Output
	}
	p := &Printer{
		w:    w,
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
	if noColor {
		for _, c := range []*color.Color{p.ok, p.warn, p.fail, p.dim} {
			c.DisableColor()
		}
	}
	return p
}

// Progress prints one line per transformed file. It matches transform.WithProgress.
func (p *Printer) Progress(ev transform.Event) {
	if ev.Err != nil {
		p.Failed(ev.Err)
		return
	}
	p.Built(ev.Result)
}

func (p *Printer) Built(res transform.BuildResult) {
	fmt.Fprintf(p.w, "%s %s %s %s\n", p.ok.Sprint(markOK), res.OriginalPath, p.dim.Sprint("→"), res.BuiltPath)
}

func (p *Printer) Failed(fe *transform.FileError) {
	fmt.Fprintf(p.w, "%s %s (%s): %v\n", p.fail.Sprint(markFail), fe.Path, fe.Stage, fe.Err)
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.warn.Sprint(markWarn), fmt.Sprintf(format, args...))
}

func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.ok.Sprint(markOK), fmt.Sprintf(format, args...))
}

// Summary prints the totals of a finished run.
func (p *Printer) Summary(r *Report) {
	if r.Empty() {
		p.Warn("Nothing to build")
		return
	}

	for _, f := range r.Findings {
		p.Warn("%s: <%s %s=%q> still points at %s (built: %s)", f.Document, f.Tag, f.Attribute, f.Value, f.Original, f.Built)
	}
	for _, f := range r.HTML.Failed {
		fmt.Fprintf(p.w, "%s %s: %v\n", p.fail.Sprint(markFail), f.Path, f.Err)
	}

	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "Run %s%s\n", r.RunID, dryRunSuffix(r.DryRun))
	fmt.Fprintf(p.w, "  scripts   %d discovered, %d built, %d failed\n", r.Discovered, r.Built(), r.Failed())
	fmt.Fprintf(p.w, "  manifest  %s\n", orDash(string(r.Manifest)))
	fmt.Fprintf(p.w, "  html      %d rewritten, %d unchanged, %d failed\n",
		len(r.HTML.Rewritten), len(r.HTML.Unchanged), len(r.HTML.Failed))
	if len(r.Findings) > 0 {
		fmt.Fprintf(p.w, "  audit     %d stale references\n", len(r.Findings))
	}
	fmt.Fprintf(p.w, "  duration  %s\n", r.Duration.Round(time.Millisecond))

	switch {
	case r.Built() == 0:
		fmt.Fprintf(p.w, "%s Build failed: no script was built\n", p.fail.Sprint(markFail))
	case r.Partial():
		p.Warn("Build finished with failures")
	default:
		p.Info("Build complete")
	}
}

func dryRunSuffix(dry bool) string {
	if dry {
		return " (dry run)"
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
