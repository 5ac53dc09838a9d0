package model

// QueueMeta is the per-day singleton stored at meta.
type QueueMeta struct {
	Date           string  `json:"date"`
	CurrentServing *string `json:"currentServing,omitempty"`
	Scheme         Scheme  `json:"scheme,omitempty"`
	StartNumber    int64   `json:"startNumber,omitempty"`
	NextNumber     int64   `json:"nextNumber,omitempty"`
}

func (m QueueMeta) Serving() string {
	if m.CurrentServing == nil {
		return ""
	}

	return *m.CurrentServing
}
