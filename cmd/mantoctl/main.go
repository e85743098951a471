package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mantohq/manto/internal/natsbus"
)

type ipcRequest struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type ipcResponse struct {
	OK       bool             `json:"ok,omitempty"`
	Error    string           `json:"error,omitempty"`
	ID       string           `json:"id,omitempty"`
	Goal     string           `json:"goal,omitempty"`
	Status   string           `json:"status,omitempty"`
	Report   string           `json:"report,omitempty"`
	Missions []missionSummary `json:"missions,omitempty"`
}

type missionSummary struct {
	ID     string `json:"id"`
	Goal   string `json:"goal"`
	Status string `json:"status"`
}

func sendIPC(natsURL, reqType string, payload map[string]any) (*ipcResponse, error) {
	client, err := natsbus.NewClientFromURL(natsURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	data, err := json.Marshal(ipcRequest{Type: reqType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	msg, err := client.Request(natsbus.TopicMissionIPC, data, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ipc request: %w", err)
	}

	var resp ipcResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

func parseArgs(args []string) map[string]string {
	result := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if len(args[i]) > 2 && args[i][:2] == "--" && i+1 < len(args) {
			result[args[i][2:]] = args[i+1]
			i++
		}
	}
	return result
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, `  mantoctl submit --goal "..."`)
	fmt.Fprintln(os.Stderr, `  mantoctl get --id "..."`)
	fmt.Fprintln(os.Stderr, "  mantoctl list")
	os.Exit(1)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	if len(os.Args) < 2 {
		usage()
	}

	command := os.Args[1]
	rest := os.Args[2:]

	switch command {
	case "submit":
		args := parseArgs(rest)
		if args["goal"] == "" {
			fatal("--goal is required")
		}
		resp, err := sendIPC(natsURL, "submit", map[string]any{
			"goal": args["goal"],
		})
		if err != nil {
			fatal("%v", err)
		}
		if resp.Error != "" {
			fatal("%s", resp.Error)
		}
		fmt.Printf("Mission submitted: %s\n", resp.ID)

	case "get":
		args := parseArgs(rest)
		if args["id"] == "" {
			fatal("--id is required")
		}
		resp, err := sendIPC(natsURL, "get", map[string]any{
			"id": args["id"],
		})
		if err != nil {
			fatal("%v", err)
		}
		if resp.Error != "" {
			fatal("%s", resp.Error)
		}
		fmt.Printf("%s  %s  %s\n", resp.ID, resp.Status, resp.Goal)
		if resp.Report != "" {
			fmt.Println()
			fmt.Println(resp.Report)
		}

	case "list":
		resp, err := sendIPC(natsURL, "list", map[string]any{})
		if err != nil {
			fatal("%v", err)
		}
		if resp.Error != "" {
			fatal("%s", resp.Error)
		}
		if len(resp.Missions) == 0 {
			fmt.Println("No missions found.")
		} else {
			for _, m := range resp.Missions {
				fmt.Printf("  %s  %s  %s\n", m.ID, m.Status, m.Goal)
			}
		}

	default:
		fatal("unknown command: %s", command)
	}
}
