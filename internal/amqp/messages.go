package amqp

import (
	"encoding/json"
	"time"

	"payouts/internal/core"
)

// BatchReadyMessage announces a parsed batch. It carries counts only; the
// bookings themselves stay with the producer.
type BatchReadyMessage struct {
	BatchID   string         `json:"batch_id"`
	CreatedAt time.Time      `json:"created_at"`
	Files     int            `json:"files"`
	Skipped   []SkippedFile  `json:"skipped,omitempty"`
	Bookings  int            `json:"bookings"`
	Dropped   map[string]int `json:"dropped,omitempty"`
	Months    []string       `json:"months"`
	Timestamp time.Time      `json:"timestamp"`
}

type SkippedFile struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// NewBatchReadyMessage summarizes b.
func NewBatchReadyMessage(b core.Batch) *BatchReadyMessage {
	msg := &BatchReadyMessage{
		BatchID:   b.ID,
		CreatedAt: b.CreatedAt,
		Files:     len(b.Files),
		Bookings:  len(b.Bookings),
		Months:    []string{},
		Timestamp: time.Now(),
	}
	for _, f := range b.Skipped() {
		msg.Skipped = append(msg.Skipped, SkippedFile{File: f.File, Error: f.Err.Error()})
	}
	if d := b.Diagnostics(); d.TotalDropped() > 0 {
		msg.Dropped = d.Dropped
	}
	for _, m := range b.Months() {
		msg.Months = append(msg.Months, m.String())
	}
	return msg
}

func (m *BatchReadyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BatchReadyMessageFromJSON(data []byte) (*BatchReadyMessage, error) {
	var msg BatchReadyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
