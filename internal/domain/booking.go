package domain

import "time"

// Booking is the durable record of a purchased tour. Provider-confirmed
// bookings carry the checkout session id they were reconciled from;
// the column is unique, which is what makes webhook redelivery safe.
// Admin-created bookings have no session id and may set Paid freely.
type Booking struct {
	ID                int64     `json:"id"`
	TourID            int64     `json:"tour_id"`
	UserID            int64     `json:"user_id"`
	Price             float64   `json:"price"`
	Paid              bool      `json:"paid"`
	CheckoutSessionID *string   `json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// BookingCreateReq is the admin-facing create payload. Price here is
// whatever the administrator says it is; reconciled bookings never go
// through this path.
type BookingCreateReq struct {
	TourID int64   `json:"tour_id"`
	UserID int64   `json:"user_id"`
	Price  float64 `json:"price"`
	Paid   bool    `json:"paid"`
}
