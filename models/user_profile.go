package models

import (
	"time"
)

// UserProfile is the contact record linked to one identity-provider user.
type UserProfile struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ExternalUserID string    `json:"externalUserId" gorm:"uniqueIndex;not null"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	AddressLine1   string    `json:"addressLine1"`
	AddressLine2   string    `json:"addressLine2"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	PostalCode     string    `json:"postalCode"`
	Country        string    `json:"country"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UserProfileUpdate is the payload accepted by the profile upsert endpoint.
type UserProfileUpdate struct {
	Name         string `json:"name"`
	Email        string `json:"email" binding:"omitempty,email"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	Notes        string `json:"notes"`
}
