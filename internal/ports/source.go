package ports

import (
	"context"

	"signalSimBot/internal/domain"
)

// MessageSource yields inbound raw messages from one or more channels.
// Delivery is at-least-once and may contain duplicates; dedup is the
// dispatcher's responsibility, not the source's.
type MessageSource interface {
	// Messages returns a channel of inbound messages. The channel is closed
	// when the source is exhausted or the context is canceled.
	Messages(ctx context.Context) (<-chan domain.RawMessage, error)
}
