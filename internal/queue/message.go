package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentVersion is the schema written by NewMessage. Version 0 payloads
// predate the field and decode as version 1.
const CurrentVersion = 1

// Message asks a worker to compute one pending analysis. The analysis row
// carries everything else, so the payload stays small.
type Message struct {
	AnalysisID string `json:"analysisId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps an analysis task with the current time and version.
func NewMessage(analysisID, requestID string) Message {
	return Message{
		AnalysisID: analysisID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    CurrentVersion,
	}
}

// EncodeMessage marshals msg for the wire.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Version == 0 {
		msg.Version = CurrentVersion
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a payload and rejects schema versions this build
// does not understand.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	switch {
	case msg.Version == 0:
		msg.Version = 1
	case msg.Version > CurrentVersion:
		return msg, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	return msg, nil
}
