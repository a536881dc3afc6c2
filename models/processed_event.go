package models

import (
	"time"
)

// ProcessedEvent is the idempotency ledger. An event id present here has
// been fully handled and must never be reprocessed.
type ProcessedEvent struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	EventID     string    `json:"eventId" gorm:"uniqueIndex;not null"`
	EventType   string    `json:"eventType"`
	ProcessedAt time.Time `json:"processedAt"`
}
