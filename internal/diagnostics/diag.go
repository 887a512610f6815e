// Package diagnostics describes problems found while configuring or driving
// the lights, in a form the preview UI and logs can both render.
package diagnostics

import (
	"time"

	"github.com/pkg/errors"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes emitted by the daemon.
const (
	CodePatternRejected = "PATTERN.REJECTED"
	CodePatternFallback = "PATTERN.FALLBACK"
	CodePatternActive   = "PATTERN.ACTIVE"
	CodeFlushFailed     = "DRIVER.FLUSH"
	CodeDriverFallback  = "DRIVER.FALLBACK"
	CodeConfigReload    = "CONFIG.RELOAD"
	CodeConfigInvalid   = "CONFIG.INVALID"
	CodeSelfTestDone    = "SELFTEST.DONE"
	CodeProgramDone     = "PROGRAM.DONE"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Sink receives diagnostics. A nil Sink discards them.
type Sink func(Diagnostic)

func (s Sink) Push(d Diagnostic) {
	if s == nil {
		return
	}
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	s(d)
}

// FromError builds an error diagnostic whose detail is the full error chain
// and whose evidence names the root cause.
func FromError(code, summary string, err error) Diagnostic {
	d := Diagnostic{Severity: Err, Code: code, Summary: summary}
	if err != nil {
		d.Detail = err.Error()
		d.Evidence = map[string]any{"cause": errors.Cause(err).Error()}
	}
	return d
}
