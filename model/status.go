package model

type TicketState string

const (
	TicketStateNone    TicketState = "none"
	TicketStatePending TicketState = "pending"
	TicketStateServing TicketState = "serving"
	TicketStateDone    TicketState = "done"
)

// Status is what a customer sees for the ticket they hold. Position is
// 1-based and zero when unknown or not queued.
type Status struct {
	State          TicketState `json:"state"`
	Number         string      `json:"number,omitempty"`
	Position       int         `json:"position"`
	CurrentServing string      `json:"current_serving"`
	Expired        bool        `json:"expired,omitempty"`
}
