// Package thinker decomposes a high-level goal into an ordered task plan.
package thinker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mantohq/manto/internal/mission"
)

// ErrEmptyPlan is returned when decomposition produces no tasks. The
// coordinator aborts the mission before anything is dispatched.
var ErrEmptyPlan = errors.New("decomposition produced no tasks")

// Thinker turns a goal into an ordered plan of tasks.
type Thinker interface {
	Decompose(ctx context.Context, goal string) ([]mission.Task, error)
}

// Planner is a rule-based Thinker: it splits the goal into steps and assigns
// sequential task ids (T1, T2, ...). Steps are separated by semicolons or
// newlines; numbered and bulleted lists are also accepted.
type Planner struct{}

func NewPlanner() *Planner {
	return &Planner{}
}

func (p *Planner) Decompose(_ context.Context, goal string) ([]mission.Task, error) {
	steps := splitSteps(goal)
	if len(steps) == 0 {
		return nil, ErrEmptyPlan
	}

	tasks := make([]mission.Task, 0, len(steps))
	for i, s := range steps {
		tasks = append(tasks, mission.Task{
			ID:          fmt.Sprintf("T%d", i+1),
			Description: s,
		})
	}
	return tasks, nil
}

// splitSteps breaks a goal into step descriptions, tolerating the formats a
// human (or an upstream model) is likely to produce.
func splitSteps(goal string) []string {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil
	}

	parts := strings.FieldsFunc(goal, func(r rune) bool {
		return r == ';' || r == '\n'
	})

	var steps []string
	for _, p := range parts {
		s := cleanStep(p)
		if s != "" {
			steps = append(steps, s)
		}
	}
	return steps
}

// cleanStep strips list decorations: "1. foo", "2) foo", "- foo", "* foo".
func cleanStep(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*• \t")

	if i := strings.IndexAny(s, ".)"); i > 0 && i <= 3 && isDigits(s[:i]) {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
