// Package report holds the outcome of one build run and prints it for humans.
package report

import (
	"time"

	"git.home.luguber.info/inful/resbuilder/internal/metrics"
	"git.home.luguber.info/inful/resbuilder/internal/rewrite"
	"git.home.luguber.info/inful/resbuilder/internal/transform"
)

// Report summarizes one build run.
type Report struct {
	RunID  string
	Root   string
	DryRun bool

	Discovered int
	Results    []transform.BuildResult // discovery order
	Failures   []transform.FileFailure

	Manifest rewrite.ManifestOutcome
	HTML     rewrite.HTMLSummary
	Findings []rewrite.Finding

	Start    time.Time
	Duration time.Duration
}

func (r *Report) Built() int  { return len(r.Results) }
func (r *Report) Failed() int { return len(r.Failures) }

// Empty reports whether discovery found nothing to build.
func (r *Report) Empty() bool { return r.Discovered == 0 }

// Partial is true when at least one script failed or an HTML file could not be processed.
func (r *Report) Partial() bool {
	return len(r.Failures) > 0 || len(r.HTML.Failed) > 0
}

// Outcome maps the report onto the build outcome metric label.
func (r *Report) Outcome() metrics.BuildOutcomeLabel {
	switch {
	case r.Discovered > 0 && r.Built() == 0:
		return metrics.BuildOutcomeFailed
	case r.Partial():
		return metrics.BuildOutcomePartial
	default:
		return metrics.BuildOutcomeSuccess
	}
}
