package gocas

import (
	"fmt"
	"strings"
)

// ============================================================
// Trace — optional step-by-step integration transcript
// ============================================================

// TraceStep records one decision made by the integration engine.
type TraceStep struct {
	Technique string `json:"technique"`
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
}

// Trace accumulates the steps of a single integration call. Attach one via
// Options.Trace to see which techniques fired, declined, or recursed.
// A Trace is not safe for concurrent use; give each call its own.
type Trace struct {
	Steps []TraceStep
}

func (t *Trace) add(technique, action, detail string) {
	if t == nil {
		return
	}
	t.Steps = append(t.Steps, TraceStep{Technique: technique, Action: action, Detail: detail})
}

func (t *Trace) String() string {
	if t == nil || len(t.Steps) == 0 {
		return "(empty trace)"
	}
	var b strings.Builder
	for i, s := range t.Steps {
		if s.Detail != "" {
			fmt.Fprintf(&b, "%2d. [%s] %s: %s\n", i+1, s.Technique, s.Action, s.Detail)
		} else {
			fmt.Fprintf(&b, "%2d. [%s] %s\n", i+1, s.Technique, s.Action)
		}
	}
	return b.String()
}
