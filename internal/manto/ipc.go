package manto

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mantohq/manto/internal/natsbus"
)

// IPCCommand is the request envelope used by mantoctl over NATS
// request/reply.
type IPCCommand struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServeIPC subscribes the coordinator to the mission IPC topic. The returned
// subscription is owned by the caller.
func (c *Coordinator) ServeIPC(client *natsbus.Client) (*nats.Subscription, error) {
	return client.Subscribe(natsbus.TopicMissionIPC, c.handleIPC)
}

func (c *Coordinator) handleIPC(msg *nats.Msg) {
	var cmd IPCCommand
	if err := json.Unmarshal(msg.Data, &cmd); err != nil {
		slog.Warn("invalid IPC command", "error", err)
		respondIPC(msg, map[string]any{"error": "invalid command"})
		return
	}

	slog.Info("IPC command received", "type", cmd.Type)

	switch cmd.Type {
	case "submit":
		c.ipcSubmit(msg, cmd.Payload)
	case "get":
		c.ipcGet(msg, cmd.Payload)
	case "list":
		c.ipcList(msg)
	default:
		slog.Warn("unknown IPC command", "type", cmd.Type)
		respondIPC(msg, map[string]any{"error": "unknown command: " + cmd.Type})
	}
}

func respondIPC(msg *nats.Msg, data any) {
	resp, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to marshal IPC response", "error", err)
		return
	}
	if err := msg.Respond(resp); err != nil {
		slog.Error("failed to respond to IPC", "error", err)
	}
}

func (c *Coordinator) ipcSubmit(msg *nats.Msg, payload json.RawMessage) {
	var req struct {
		Goal string `json:"goal"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		respondIPC(msg, map[string]any{"error": "invalid payload"})
		return
	}

	run, err := c.Submit(context.Background(), req.Goal)
	if err != nil {
		respondIPC(msg, map[string]any{"error": err.Error()})
		return
	}
	respondIPC(msg, map[string]any{"ok": true, "id": run.ID})
}

func (c *Coordinator) ipcGet(msg *nats.Msg, payload json.RawMessage) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.ID == "" {
		respondIPC(msg, map[string]any{"error": "id is required"})
		return
	}

	run, err := c.store.GetMissionRun(req.ID)
	if err != nil {
		respondIPC(msg, map[string]any{"error": fmt.Sprintf("get failed: %v", err)})
		return
	}
	if run == nil {
		respondIPC(msg, map[string]any{"error": "mission not found: " + req.ID})
		return
	}
	respondIPC(msg, run)
}

func (c *Coordinator) ipcList(msg *nats.Msg) {
	runs, err := c.store.ListMissionRuns(20)
	if err != nil {
		respondIPC(msg, map[string]any{"error": fmt.Sprintf("list failed: %v", err)})
		return
	}
	respondIPC(msg, map[string]any{"missions": runs})
}
