package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders a trace as stable text, one line per step followed
// by one line per client:
//
//	step 1: alice create "Buy milk" -> ok
//	  alice: items=[1 "Buy milk"] search="" pending="" notice="..." err=none
func FormatTrace(name string, trace []TraceEvent) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range trace {
		who := ""
		if ev.Client != "" {
			who = ev.Client + " "
		}
		fmt.Fprintf(&b, "step %d: %s%s -> %s\n", ev.Step, who, ev.Action, ev.Outcome)
		for _, s := range ev.States {
			fmt.Fprintf(&b, "  %s: items=[%s] search=%q pending=%q notice=%q err=%s\n",
				s.Name, formatItems(s), s.Search, s.Pending, s.Notification, s.Err)
		}
	}
	return []byte(b.String())
}

func formatItems(s ClientState) string {
	parts := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		p := fmt.Sprintf("%s %q", it.ID, it.Title)
		if it.Completed {
			p += " done"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

// RunWithGolden executes a scenario, fails t on any mismatch, and compares
// the trace against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, FormatTrace(scenario.Name, result.Trace))
	return result
}
