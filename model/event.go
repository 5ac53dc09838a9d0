package model

type QueueEventKind string

const (
	QueueEventIssued   QueueEventKind = "issued"
	QueueEventCalled   QueueEventKind = "called"
	QueueEventReset    QueueEventKind = "reset"
	QueueEventRollover QueueEventKind = "rollover"
)

type QueueEventMessage struct {
	Kind       QueueEventKind `json:"kind"`
	Day        string         `json:"day"`
	Number     string         `json:"number,omitempty"`
	Key        string         `json:"key,omitempty"`
	OccurredAt string         `json:"occurred_at"`
}
