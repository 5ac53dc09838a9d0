package constant

const (
	QueueStreamName = "ticketer_queue_stream"
)

const (
	AllWildcard    = "events.>"
	TicketWildcard = "events.ticket.>"
	QueueWildcard  = "events.queue.>"

	SubjectTicketIssued  = "events.ticket.issued"
	SubjectTicketCalled  = "events.ticket.called"
	SubjectQueueReset    = "events.queue.reset"
	SubjectQueueRollover = "events.queue.rollover"
)

// ChangeSubjectPrefix prefixes the core NATS subjects carrying store change
// notices, one subject per root path segment.
const ChangeSubjectPrefix = "ticketer.changes."
