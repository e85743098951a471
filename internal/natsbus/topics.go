package natsbus

import "fmt"

// Topic patterns for NATS pub/sub communication.

func TopicMissionEvents(missionID string) string {
	return fmt.Sprintf("events.mission.%s", missionID)
}

func TopicAgentEvents(agentID string) string {
	return fmt.Sprintf("events.agent.%s", agentID)
}

const (
	TopicEventsAll         = "events.>"
	TopicEventsMission     = "events.mission.*"
	TopicEventsAgent       = "events.agent.*"
	TopicEventsMaintenance = "events.maintenance"

	// TopicMissionIPC is the request/reply endpoint used by mantoctl.
	TopicMissionIPC = "host.ipc.missions"
)
