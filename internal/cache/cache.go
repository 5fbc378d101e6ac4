// Package cache mirrors delivered outbox messages into Redis so support
// tooling can answer "was this sent?" without hitting the database.
package cache

import (
	"context"
	"time"
)

type SentMailCache interface {
	StoreSent(ctx context.Context, id uint64, recipient string, sentAt time.Time) error
}
