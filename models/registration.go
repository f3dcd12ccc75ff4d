package models

import (
	"time"
)

type RegistrationStatus string

const (
	RegistrationRegistered       RegistrationStatus = "registered"
	RegistrationPaymentInitiated RegistrationStatus = "payment_initiated"
	RegistrationConfirmed        RegistrationStatus = "confirmed"
	RegistrationCancelled        RegistrationStatus = "cancelled"
)

// EventRegistration is unique per (user, event). CheckedIn is monotonic:
// once true it is never reversed.
type EventRegistration struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	EventID     string             `json:"event_id"`
	Status      RegistrationStatus `json:"status"`
	CheckedIn   bool               `json:"checked_in"`
	CheckedInAt *time.Time         `json:"checked_in_at,omitempty"`
}
