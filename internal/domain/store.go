package domain

import (
	"context"
	"time"
)

// CounterStore keeps the running per-mood tallies. Add ignores moods
// outside the allowed set; Save persists best-effort.
type CounterStore interface {
	Add(mood string)
	Snapshot() map[string]int
	Save() error
}

// ChatExchange is one persisted exchange line in the chat history log.
type ChatExchange struct {
	Timestamp string `json:"timestamp"` // 2006-01-02 15:04:05
	User      string `json:"user"`
	Response  string `json:"response"`
}

// ChatLogger appends completed exchanges to the history log and reads
// them back for the statistics engine.
type ChatLogger interface {
	Append(user, response string) error
	Entries() ([]ChatExchange, error)
}

// AuditKind classifies an audit record.
type AuditKind string

const (
	AuditBlock AuditKind = "block"
	AuditFlow  AuditKind = "flow"
)

// AuditEntry is one row in the audit trail.
type AuditEntry struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Kind    AuditKind `json:"kind"`
	Channel string    `json:"channel"`
	Flow    Flow      `json:"flow,omitempty"`
	Pattern string    `json:"pattern,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// AuditStore records routing decisions and block events. Implementations
// are best-effort: a failed write is logged, never propagated.
type AuditStore interface {
	LogBlock(ctx context.Context, channel, pattern, detail string)
	LogFlow(ctx context.Context, channel string, flow Flow, detail string)
	Recent(ctx context.Context, n int) ([]AuditEntry, error)
	Close() error
}
