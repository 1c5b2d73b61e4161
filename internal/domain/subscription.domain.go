package domain

import "time"

type EmailSubmission struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	EventID     string    `json:"event_id,omitempty"` // listing the visitor clicked through from
	SubmittedAt time.Time `json:"submitted_at"`
}

type SubmitStatus string

const (
	SubmitAccepted          SubmitStatus = "accepted"
	SubmitAlreadySubscribed SubmitStatus = "already_subscribed"
)

// SubmitResult is returned by the subscription gate. TicketURL is filled when
// the submission referenced a known event.
type SubmitResult struct {
	Status    SubmitStatus `json:"status"`
	TicketURL string       `json:"ticket_url,omitempty"`
}
