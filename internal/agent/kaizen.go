package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/mission"
)

// KaizenAgent performs quality and risk analysis. It scores failure modes
// FMEA-style: risk priority number (RPN) = severity x probability x
// detectability, each on a 1-10 scale, highest RPN first.
type KaizenAgent struct {
	*base
}

func NewKaizenAgent(def config.AgentDefinition) *KaizenAgent {
	b := newBase("kaizen", "Kaizen", "quality and risk analysis",
		[]string{"quality", "risk", "improve", "fmea", "failure"}, 0.75, 1.0)
	b.applyDefinition(def)
	return &KaizenAgent{base: b}
}

type failureMode struct {
	step          string
	failure       string
	severity      int
	probability   int
	detectability int
}

func (m failureMode) rpn() int {
	return m.severity * m.probability * m.detectability
}

// knownModes are heuristics keyed on words that typically appear in a task
// description. Severity and probability values follow the usual FMEA bands
// (10 critical, 7 high, 5 medium, 3 low, 1 negligible).
var knownModes = []struct {
	trigger string
	mode    failureMode
}{
	{"network", failureMode{failure: "transient network failure mid-operation", severity: 7, probability: 7, detectability: 3}},
	{"deploy", failureMode{failure: "partial rollout leaves mixed versions serving traffic", severity: 10, probability: 5, detectability: 5}},
	{"migrat", failureMode{failure: "schema migration irreversibly drops data", severity: 10, probability: 3, detectability: 7}},
	{"cache", failureMode{failure: "stale cache entry served past its validity", severity: 5, probability: 5, detectability: 7}},
	{"data", failureMode{failure: "silent data corruption propagates downstream", severity: 10, probability: 3, detectability: 10}},
	{"api", failureMode{failure: "upstream API contract changes without notice", severity: 7, probability: 5, detectability: 5}},
}

var defaultMode = failureMode{failure: "human error in a manual step", severity: 5, probability: 5, detectability: 5}

func (a *KaizenAgent) Execute(ctx context.Context, task mission.Task) mission.TaskResult {
	return a.run(ctx, task, func(context.Context) (string, error) {
		modes := analyzeFailureModes(task.Description)
		sort.SliceStable(modes, func(i, j int) bool { return modes[i].rpn() > modes[j].rpn() })

		var b strings.Builder
		fmt.Fprintf(&b, "FMEA for: %s\n", task.Description)
		fmt.Fprintf(&b, "%d failure mode(s), highest risk first:\n", len(modes))
		for i, m := range modes {
			fmt.Fprintf(&b, "%d. [RPN %d] %s (S=%d P=%d D=%d)\n",
				i+1, m.rpn(), m.failure, m.severity, m.probability, m.detectability)
		}
		return b.String(), nil
	})
}

// analyzeFailureModes derives failure modes from a description. Every
// analysis yields at least the default manual-step mode, so the report is
// never empty.
func analyzeFailureModes(description string) []failureMode {
	lower := strings.ToLower(description)
	var modes []failureMode
	for _, k := range knownModes {
		if strings.Contains(lower, k.trigger) {
			modes = append(modes, k.mode)
		}
	}
	modes = append(modes, defaultMode)
	return modes
}
