package models

import (
	"time"
)

type TicketTransactionStatus string

const (
	TicketTransactionPending   TicketTransactionStatus = "pending"
	TicketTransactionCompleted TicketTransactionStatus = "completed"
)

// TicketTransaction records one purchased ticket line. StripeEventID plus
// LineIndex form the idempotency key: redelivery of a checkout event cannot
// create the same line twice.
type TicketTransaction struct {
	ID             string                  `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Email          string                  `json:"email" gorm:"not null"`
	TicketType     string                  `json:"ticketType" gorm:"not null"`
	Quantity       int                     `json:"quantity" gorm:"not null"`
	PricePerUnit   int64                   `json:"pricePerUnit"`
	TotalAmount    int64                   `json:"totalAmount"`
	Status         TicketTransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	PurchaseDate   time.Time               `json:"purchaseDate"`
	EventID        string                  `json:"eventId"`
	ExternalUserID string                  `json:"externalUserId" gorm:"index"`
	StripeEventID  string                  `json:"stripeEventId" gorm:"uniqueIndex:idx_ticket_event_line"`
	LineIndex      int                     `json:"lineIndex" gorm:"uniqueIndex:idx_ticket_event_line"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

// TicketLine is one line of a ticket checkout request, and the shape carried
// in the checkout session's metadata.
type TicketLine struct {
	Type     string `json:"type" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Price    int64  `json:"price" binding:"required,gt=0"`
}
