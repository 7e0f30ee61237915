package domain

import "time"

// RawMessage is an inbound free-form trading-call text as delivered by a
// message source. It is ephemeral: produced by a collaborator and consumed
// exactly once by the dispatcher. Delivery is at-least-once, so the same text
// may arrive more than once.
type RawMessage struct {
	SourceID     string    // Channel/source identifier (e.g., "telegram:cryptocalls")
	TraderIDHint string    // Trader attribution hinted by the source, may be empty
	Text         string    // Raw message text
	ReceivedAt   time.Time // When the source handed the message over
	MessageID    string    // Source-native message ID, may be empty
}
