package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spendlens/internal/core"
)

const runMessageVersion = 1

// RunMessage is the wire form of a core.RunSummary.
type RunMessage struct {
	Version          int            `json:"version"`
	ID               string         `json:"id"`
	Filename         string         `json:"filename"`
	Digest           string         `json:"digest"`
	Endpoint         string         `json:"endpoint"`
	RowsIn           int            `json:"rows_in"`
	RowsOut          int            `json:"rows_out"`
	DroppedZeroDebit int            `json:"dropped_zero_debit"`
	DroppedTax       int            `json:"dropped_tax"`
	Categories       map[string]int `json:"categories"`
	DurationMs       int64          `json:"duration_ms"`
	CreatedAt        time.Time      `json:"created_at"`
	PublishedAt      time.Time      `json:"published_at"`
}

func NewRunMessage(run core.RunSummary) *RunMessage {
	return &RunMessage{
		Version:          runMessageVersion,
		ID:               run.ID,
		Filename:         run.Filename,
		Digest:           run.Digest,
		Endpoint:         run.Endpoint,
		RowsIn:           run.RowsIn,
		RowsOut:          run.RowsOut,
		DroppedZeroDebit: run.DroppedZeroDebit,
		DroppedTax:       run.DroppedTax,
		Categories:       run.Categories,
		DurationMs:       run.DurationMs,
		CreatedAt:        run.CreatedAt,
		PublishedAt:      time.Now().UTC(),
	}
}

// Summary converts the message back into a domain value.
func (m *RunMessage) Summary() core.RunSummary {
	return core.RunSummary{
		ID:               m.ID,
		Filename:         m.Filename,
		Digest:           m.Digest,
		Endpoint:         m.Endpoint,
		RowsIn:           m.RowsIn,
		RowsOut:          m.RowsOut,
		DroppedZeroDebit: m.DroppedZeroDebit,
		DroppedTax:       m.DroppedTax,
		Categories:       m.Categories,
		DurationMs:       m.DurationMs,
		CreatedAt:        m.CreatedAt,
	}
}

func (m *RunMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RunMessageFromJSON decodes a message and rejects versions this build does
// not understand.
func RunMessageFromJSON(data []byte) (*RunMessage, error) {
	var msg RunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Version != runMessageVersion {
		return nil, fmt.Errorf("unsupported run message version %d", msg.Version)
	}
	return &msg, nil
}
