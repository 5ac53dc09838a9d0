package queue

import (
	"ticketer/common/constant"
	"ticketer/model"
	"time"
)

// View is the latest cached value of every path a viewer subscribes to.
// Tickets are kept in queue order. Loaded turns true with the first queue
// snapshot and never back.
type View struct {
	Tickets        []model.Ticket
	CurrentServing string
	Date           string
	Loaded         bool
	Location       *time.Location
}

// Waiting is the queue as it should be shown: tickets of earlier days and
// the ticket already announced as serving are left out. Tickets newer than
// Date stay, since meta may lag behind the queue after a rollover.
func (v View) Waiting() []model.Ticket {
	waiting := make([]model.Ticket, 0, len(v.Tickets))
	for _, ticket := range v.Tickets {
		if v.Date != "" && DayKey(ticket.IssuedAt(), v.Location) < v.Date {
			continue
		}

		if v.CurrentServing != "" && ticket.Number == v.CurrentServing {
			continue
		}

		waiting = append(waiting, ticket)
	}

	return waiting
}

// Position is the 1-based place of number among the waiting tickets, zero
// when it is not queued.
func (v View) Position(number string) int {
	for i, ticket := range v.Waiting() {
		if ticket.Number == number {
			return i + 1
		}
	}

	return 0
}

// Evaluate derives what the holder of local sees. It depends only on its
// arguments, so recomputing it for the same inputs gives the same status.
func Evaluate(view View, local *model.LocalTicket, now time.Time, expiry time.Duration) model.Status {
	status := model.Status{State: model.TicketStateNone, CurrentServing: view.CurrentServing}

	if local == nil {
		return status
	}

	if expiry <= 0 {
		expiry = constant.DefaultTicketExpiry
	}

	if local.Expired(now, expiry) {
		status.Expired = true
		return status
	}

	// day keys sort as strings
	if view.Date != "" && view.Date > local.Date {
		return status
	}

	status.Number = local.Number

	if view.Date != "" && view.Date < local.Date {
		status.State = model.TicketStatePending
		return status
	}

	if view.CurrentServing == local.Number {
		status.State = model.TicketStateServing
		return status
	}

	if position := view.Position(local.Number); position > 0 {
		status.State = model.TicketStatePending
		status.Position = position
		return status
	}

	if !view.Loaded {
		status.State = model.TicketStatePending
		return status
	}

	status.State = model.TicketStateDone
	return status
}

// Tracker follows one customer's ticket through
// NONE -> PENDING -> SERVING or DONE -> NONE. The ticket is dropped once it
// is reported done, has expired, or belongs to a day that is over.
type Tracker struct {
	Expiry time.Duration

	ticket *model.LocalTicket
}

func NewTracker(expiry time.Duration) *Tracker {
	if expiry <= 0 {
		expiry = constant.DefaultTicketExpiry
	}

	return &Tracker{Expiry: expiry}
}

func (t *Tracker) Hold(ticket model.LocalTicket) {
	t.ticket = &ticket
}

func (t *Tracker) Ticket() (model.LocalTicket, bool) {
	if t.ticket == nil {
		return model.LocalTicket{}, false
	}

	return *t.ticket, true
}

func (t *Tracker) Observe(view View, now time.Time) model.Status {
	status := Evaluate(view, t.ticket, now, t.Expiry)

	if status.State == model.TicketStateDone || status.State == model.TicketStateNone {
		t.ticket = nil
	}

	return status
}

// BoardOf is what the public display shows: the serving number and the
// first n waiting numbers.
func BoardOf(view View, n int) model.Board {
	if n <= 0 {
		n = constant.DefaultUpcomingSize
	}

	waiting := view.Waiting()

	upcoming := make([]string, 0, n)
	for i := 0; i < len(waiting) && i < n; i++ {
		upcoming = append(upcoming, waiting[i].Number)
	}

	return model.Board{
		CurrentServing: view.CurrentServing,
		Upcoming:       upcoming,
		Waiting:        len(waiting),
		Date:           view.Date,
	}
}

// DashboardOf is the cashier's full view of the waiting queue.
func DashboardOf(view View) model.Dashboard {
	waiting := view.Waiting()

	entries := make([]model.DashboardEntry, 0, len(waiting))
	for i, ticket := range waiting {
		issuedAt := ticket.IssuedAt()
		if view.Location != nil {
			issuedAt = issuedAt.In(view.Location)
		}

		entries = append(entries, model.DashboardEntry{
			Key:      ticket.Key,
			Number:   ticket.Number,
			IssuedAt: issuedAt.Format(time.RFC3339),
			Next:     i == 0,
		})
	}

	return model.Dashboard{
		CurrentServing: view.CurrentServing,
		Queue:          entries,
		Count:          len(entries),
		Date:           view.Date,
	}
}
