package mailer

import (
	"fmt"

	"github.com/trailhead/tour-bookings/internal/domain"
)

func bookingConfirmationBody(toName string, booking *domain.Booking) (subject, text, html string) {
	subject = "Your tour booking is confirmed"
	text = fmt.Sprintf(
		"Hi %s,\n\nYour payment went through and your tour is booked.\nBooking #%d, amount charged: %.2f.\n\nSee you out there!",
		toName, booking.ID, booking.Price,
	)
	html = fmt.Sprintf(
		`<p>Hi %s,</p><p>Your payment went through and your tour is booked.</p><p>Booking <b>#%d</b>, amount charged: <b>%.2f</b>.</p><p>See you out there!</p>`,
		toName, booking.ID, booking.Price,
	)
	return subject, text, html
}
