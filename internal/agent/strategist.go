package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mantohq/manto/internal/cache"
	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/mission"
)

// StrategistAgent turns planning tasks into ordered action plans using a
// small set of strategy frameworks. Generated plans are cached by objective
// so repeated planning rounds are free.
type StrategistAgent struct {
	*base
	plans *cache.Cache
}

func NewStrategistAgent(def config.AgentDefinition) *StrategistAgent {
	b := newBase("strategist", "Strategist", "planning",
		[]string{"strategy", "plan", "prioritize", "roadmap"}, 0.8, 1.5)
	b.applyDefinition(def)
	return &StrategistAgent{
		base:  b,
		plans: cache.New(50, 2*time.Hour),
	}
}

// frameworks maps a strategy framework to the angle it contributes to a plan.
var frameworks = map[string]string{
	"ReversePlanning": "work backwards from the desired end state",
	"SWOT":            "weigh strengths, weaknesses, opportunities and threats",
}

func (a *StrategistAgent) Execute(ctx context.Context, task mission.Task) mission.TaskResult {
	return a.run(ctx, task, func(context.Context) (string, error) {
		objective := strings.TrimSpace(task.Description)
		key := "plan:" + strings.ToLower(objective)

		if v, ok := a.plans.Get(key); ok {
			return v.(string), nil
		}

		framework := "ReversePlanning"
		if strings.Contains(strings.ToLower(objective), "prioritize") {
			framework = "SWOT"
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Action plan for: %s\n", objective)
		fmt.Fprintf(&b, "Framework: %s (%s)\n", framework, frameworks[framework])
		fmt.Fprintf(&b, "1. clarify the end state and the acceptance criteria\n")
		fmt.Fprintf(&b, "2. break the objective into independently verifiable steps\n")
		fmt.Fprintf(&b, "3. order steps by dependency, then by estimated cost\n")
		fmt.Fprintf(&b, "4. assign each step to the cheapest capable specialist\n")

		plan := b.String()
		a.plans.Set(key, plan)
		return plan, nil
	})
}

// Maintain keeps the plan cache bounded.
func (a *StrategistAgent) Maintain(_ context.Context, routine string) error {
	switch routine {
	case "cache-sweep":
		a.plans.Size()
		return nil
	case "cache-clear":
		a.plans.Clear()
		return nil
	default:
		return fmt.Errorf("unknown routine: %s", routine)
	}
}
