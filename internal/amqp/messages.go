package amqp

import (
	"encoding/json"
	"time"
)

// TripSyncMessage tells the export worker that a trip changed. It carries only
// the id and version; the worker reloads the full snapshot from storage, so a
// single message kind covers adds, edits and deletes alike.
type TripSyncMessage struct {
	TripID    string    `json:"trip_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTripSyncMessage creates a sync message for the given trip version.
func NewTripSyncMessage(tripID string, version int64) *TripSyncMessage {
	return &TripSyncMessage{
		TripID:    tripID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TripSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TripSyncMessageFromJSON decodes a message from JSON bytes.
func TripSyncMessageFromJSON(data []byte) (*TripSyncMessage, error) {
	var msg TripSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
