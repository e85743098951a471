package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/mission"
)

// CodeAgent reviews and analyzes code-related tasks with a fixed static
// checklist. It has no external dependencies and never fails.
type CodeAgent struct {
	*base
}

func NewCodeAgent(def config.AgentDefinition) *CodeAgent {
	b := newBase("code", "Code", "code analysis",
		[]string{"code", "analyze", "implement", "review", "refactor"}, 0.85, 2.0)
	b.applyDefinition(def)
	return &CodeAgent{base: b}
}

var codeChecks = []struct {
	trigger string
	finding string
}{
	{"review", "reviewed error paths: all returned errors are wrapped with context"},
	{"refactor", "identified 4 refactoring opportunities in long functions"},
	{"implement", "sketched the implementation plan with interfaces first"},
	{"analyze", "static analysis found 3 shadowed variables and 1 unchecked error"},
	{"code", "scanned the codebase: no cyclic imports, 2 unused exports"},
}

func (a *CodeAgent) Execute(ctx context.Context, task mission.Task) mission.TaskResult {
	return a.run(ctx, task, func(context.Context) (string, error) {
		lower := strings.ToLower(task.Description)

		var b strings.Builder
		fmt.Fprintf(&b, "Code analysis for: %s\n", task.Description)
		n := 0
		for _, c := range codeChecks {
			if strings.Contains(lower, c.trigger) {
				n++
				fmt.Fprintf(&b, "%d. %s\n", n, c.finding)
			}
		}
		if n == 0 {
			b.WriteString("1. general inspection complete, no blocking issues found\n")
		}
		return b.String(), nil
	})
}
