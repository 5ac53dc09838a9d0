package model

import "time"

// Scheme selects how ticket numbers look. It is fixed per deployment.
type Scheme string

const (
	SchemeSequential Scheme = "sequential"
	SchemeCoded      Scheme = "coded"
)

func (s Scheme) Valid() bool {
	return s == SchemeSequential || s == SchemeCoded
}

// Ticket is the stored queue entry at queue/<key>. Key is assigned by the
// store and is not part of the stored value.
type Ticket struct {
	Key       string `json:"-"`
	Number    string `json:"number"`
	Timestamp int64  `json:"timestamp"`
}

func (t Ticket) IssuedAt() time.Time {
	return time.UnixMilli(t.Timestamp)
}

// LocalTicket is the customer's proof of place, held by the participant.
type LocalTicket struct {
	Key       string `json:"key" validate:"required"`
	Number    string `json:"number" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Timestamp int64  `json:"timestamp" validate:"required,gt=0"`
}

func (t LocalTicket) Expired(now time.Time, ttl time.Duration) bool {
	if t.Timestamp <= 0 {
		return true
	}

	return now.Sub(time.UnixMilli(t.Timestamp)) > ttl
}
