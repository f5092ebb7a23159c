package notify

import (
	"fmt"

	"github.com/example/padel-booking/internal/slots"
)

type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// ClientConfirmation is the email the client receives after booking.
func ClientConfirmation(name, email string, sl slots.Slot) Message {
	body := fmt.Sprintf(`
<h3>Booking Confirmation</h3>
<p>Hi %s,</p>
<p>Your padel training has been booked successfully!</p>
<ul>
  <li><b>Date:</b> %s</li>
  <li><b>Time:</b> %s - %s</li>
  <li><b>Court:</b> %s</li>
</ul>
<p>See you on court!</p>`,
		name, sl.Date, sl.StartTime, sl.EndTime, sl.Court)

	return Message{
		To:       email,
		Subject:  "Padel Training Confirmation",
		HTMLBody: body,
	}
}

// CoachAlert tells the coach who just booked which slot.
func CoachAlert(coachEmail, name, email string, sl slots.Slot) Message {
	body := fmt.Sprintf(`
<h3>%s booked a session</h3>
<p>%s (%s) booked a training session.</p>
<ul>
  <li><b>Date:</b> %s</li>
  <li><b>Time:</b> %s - %s</li>
  <li><b>Court:</b> %s</li>
</ul>`,
		name, name, email, sl.Date, sl.StartTime, sl.EndTime, sl.Court)

	return Message{
		To:       coachEmail,
		Subject:  "New Padel Booking",
		HTMLBody: body,
	}
}
