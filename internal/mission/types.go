package mission

// Task is one decomposed, orderable step of a goal. Immutable once created;
// identity is ID.
type Task struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	DependsOn   []string `json:"depends_on,omitempty"`
}

// Bid is an agent's self-reported capability, confidence and cost for a
// task. Bids live for one broadcast round only and are never persisted.
type Bid struct {
	AgentID       string  `json:"agent_id"`
	Capability    string  `json:"capability"`
	Confidence    float64 `json:"confidence"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// TaskResult is the immutable outcome of one executed task.
type TaskResult struct {
	TaskID    string `json:"task_id"`
	AgentID   string `json:"agent_id"`
	Succeeded bool   `json:"succeeded"`
	Payload   string `json:"payload,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Outcome classifies what happened to a task within a plan.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Record ties a task to its outcome for synthesis. Result is nil for tasks
// that were never dispatched (skipped or aborted before selection).
type Record struct {
	Task    Task        `json:"task"`
	Outcome Outcome     `json:"outcome"`
	Reason  string      `json:"reason,omitempty"`
	Result  *TaskResult `json:"result,omitempty"`
}
