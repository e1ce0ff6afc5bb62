package domain

import "context"

// Channel is the interface for user-facing I/O (Web, CLI, Telegram, Discord).
// Channels own presentation; the router owns semantics.
type Channel interface {
	Name() string
	Start(ctx context.Context, router Router) error
	Stop() error
}
