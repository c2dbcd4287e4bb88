package mqtt

import (
	"encoding/json"
	"time"
)

// statusSuffix is appended to the hub topic for the retained online/offline status.
const statusSuffix = "/status"

// Status values and offline reasons carried on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	ReasonUnexpected = "unexpected_disconnect"
	ReasonShutdown   = "graceful_shutdown"
)

// StatusTopic returns the status topic for the hub topic.
//
// The hub subscribes to the bare topic without wildcards, so status
// messages never reach the command router.
func StatusTopic(topic string) string {
	return topic + statusSuffix
}

// Status is the retained presence message on StatusTopic.
type Status struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusPayload encodes a presence message stamped with the current time.
func statusPayload(clientID, status, reason string) []byte {
	// A struct of strings always marshals.
	b, _ := json.Marshal(Status{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}
