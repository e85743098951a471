package main

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/natsbus"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]string
	}{
		{
			name: "empty",
			args: []string{},
			want: map[string]string{},
		},
		{
			name: "single flag",
			args: []string{"--goal", "research Go"},
			want: map[string]string{"goal": "research Go"},
		},
		{
			name: "multiple flags",
			args: []string{"--goal", "research Go", "--id", "m1"},
			want: map[string]string{"goal": "research Go", "id": "m1"},
		},
		{
			name: "flag without value is ignored",
			args: []string{"--goal"},
			want: map[string]string{},
		},
		{
			name: "short prefix not treated as flag",
			args: []string{"-g", "research Go"},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseArgs(tt.args)
			if len(got) != len(tt.want) {
				t.Errorf("parseArgs(%v) returned %d entries, want %d", tt.args, len(got), len(tt.want))
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("parseArgs(%v)[%q] = %q, want %q", tt.args, k, got[k], v)
				}
			}
		})
	}
}

func startTestNATS(t *testing.T) *natsbus.Bus {
	t.Helper()
	bus, err := natsbus.New(config.NATSConfig{
		Port:    0,
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	t.Cleanup(func() { bus.Close() })
	return bus
}

func mockResponder(t *testing.T, url string, handler func(req ipcRequest) any) {
	t.Helper()
	client, err := natsbus.NewClientFromURL(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)

	_, err = client.Subscribe(natsbus.TopicMissionIPC, func(msg *nats.Msg) {
		var req ipcRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		resp, _ := json.Marshal(handler(req))
		msg.Respond(resp)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	client.Flush()
}

func TestSendIPCSubmit(t *testing.T) {
	bus := startTestNATS(t)
	url := bus.ClientURL()

	mockResponder(t, url, func(req ipcRequest) any {
		if req.Type != "submit" {
			t.Errorf("expected type submit, got %s", req.Type)
		}
		if req.Payload["goal"] != "research Go generics" {
			t.Errorf("expected goal 'research Go generics', got %v", req.Payload["goal"])
		}
		return ipcResponse{OK: true, ID: "mission-123"}
	})

	resp, err := sendIPC(url, "submit", map[string]any{"goal": "research Go generics"})
	if err != nil {
		t.Fatalf("sendIPC: %v", err)
	}
	if resp.ID != "mission-123" {
		t.Errorf("expected id mission-123, got %s", resp.ID)
	}
}

func TestSendIPCList(t *testing.T) {
	bus := startTestNATS(t)
	url := bus.ClientURL()

	mockResponder(t, url, func(req ipcRequest) any {
		if req.Type != "list" {
			t.Errorf("expected type list, got %s", req.Type)
		}
		return map[string]any{"missions": []missionSummary{
			{ID: "m1", Goal: "goal one", Status: "synthesized"},
			{ID: "m2", Goal: "goal two", Status: "running"},
		}}
	})

	resp, err := sendIPC(url, "list", map[string]any{})
	if err != nil {
		t.Fatalf("sendIPC: %v", err)
	}
	if len(resp.Missions) != 2 {
		t.Fatalf("expected 2 missions, got %d", len(resp.Missions))
	}
	if resp.Missions[0].ID != "m1" || resp.Missions[1].ID != "m2" {
		t.Errorf("unexpected mission IDs: %v", resp.Missions)
	}
}

func TestSendIPCErrorResponse(t *testing.T) {
	bus := startTestNATS(t)
	url := bus.ClientURL()

	mockResponder(t, url, func(req ipcRequest) any {
		return ipcResponse{Error: "mission not found: nonexistent"}
	})

	resp, err := sendIPC(url, "get", map[string]any{"id": "nonexistent"})
	if err != nil {
		t.Fatalf("sendIPC: %v", err)
	}
	if resp.Error != "mission not found: nonexistent" {
		t.Errorf("unexpected error: %q", resp.Error)
	}
}
