package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

type Schedule struct {
	Kind       string `json:"kind"`        // "cron", "interval", "once"
	CronExpr   string `json:"cron_expr"`   // Cron expression (if kind=cron)
	IntervalMs int64  `json:"interval_ms"` // Interval in ms (if kind=interval)
	AtMs       int64  `json:"at_ms"`       // Unix ms timestamp (if kind=once)
}

func ParseSchedule(raw string) (*Schedule, error) {
	var s Schedule
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CalculateNextRun returns the next fire time for a schedule JSON string,
// or nil when the schedule is invalid or will never fire again.
func CalculateNextRun(scheduleJSON string) *time.Time {
	s, err := ParseSchedule(scheduleJSON)
	if err != nil {
		return nil
	}

	var next time.Time
	now := time.Now()

	switch s.Kind {
	case "cron":
		nextTime, err := gronx.NextTick(s.CronExpr, false)
		if err != nil {
			return nil
		}
		next = nextTime
	case "interval":
		next = now.Add(time.Duration(s.IntervalMs) * time.Millisecond)
	case "once":
		t := time.UnixMilli(s.AtMs)
		if t.After(now) {
			next = t
		} else {
			return nil
		}
	default:
		return nil
	}

	return &next
}

// Describe returns a short human-readable form of a schedule, for listings.
func Describe(scheduleJSON string) string {
	s, err := ParseSchedule(scheduleJSON)
	if err != nil {
		return scheduleJSON
	}

	switch s.Kind {
	case "cron":
		return "cron " + s.CronExpr
	case "interval":
		return "every " + (time.Duration(s.IntervalMs) * time.Millisecond).String()
	case "once":
		return "once at " + time.UnixMilli(s.AtMs).Format("Jan 2 15:04")
	default:
		return scheduleJSON
	}
}

// NormalizeSchedule accepts the three forms a schedule may take in config or
// over IPC and returns the canonical JSON encoding:
//
//   - JSON with a "kind" field (validated and passed through)
//   - a plain cron expression, e.g. "0 3 * * *"
//   - an interval shorthand, e.g. "every 6h"
func NormalizeSchedule(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	var s Schedule
	if err := json.Unmarshal([]byte(raw), &s); err == nil && s.Kind != "" {
		switch s.Kind {
		case "cron":
			if !gronx.New().IsValid(s.CronExpr) {
				return "", fmt.Errorf("invalid cron expression: %s", s.CronExpr)
			}
		case "interval":
			if s.IntervalMs <= 0 {
				return "", fmt.Errorf("interval_ms must be positive")
			}
		case "once":
			if s.AtMs <= 0 {
				return "", fmt.Errorf("at_ms must be positive")
			}
		default:
			return "", fmt.Errorf("unknown schedule kind: %s", s.Kind)
		}
		return raw, nil
	}

	if rest, ok := strings.CutPrefix(raw, "every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil || d <= 0 {
			return "", fmt.Errorf("invalid interval schedule: %s", raw)
		}
		data, err := json.Marshal(Schedule{Kind: "interval", IntervalMs: d.Milliseconds()})
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	if !gronx.New().IsValid(raw) {
		return "", fmt.Errorf("invalid schedule: not valid JSON, cron expression or interval: %s", raw)
	}

	data, err := json.Marshal(Schedule{Kind: "cron", CronExpr: raw})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
