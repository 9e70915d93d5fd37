package domain

import "time"

// LogLevel is the severity shown by the console feed.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
)

// LogEntry is one line of the user-facing console.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   LogLevel  `json:"level"`
	NodeID  string    `json:"node_id,omitempty"`
	Message string    `json:"message"`
}

// NewLogEntry stamps an entry with the current time.
func NewLogEntry(level LogLevel, nodeID, msg string) LogEntry {
	return LogEntry{Time: time.Now(), Level: level, NodeID: nodeID, Message: msg}
}
