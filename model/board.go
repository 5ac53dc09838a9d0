package model

type Board struct {
	CurrentServing string   `json:"current_serving"`
	Upcoming       []string `json:"upcoming"`
	Waiting        int      `json:"waiting"`
	Date           string   `json:"date"`
}

type DashboardEntry struct {
	Key      string `json:"key"`
	Number   string `json:"number"`
	IssuedAt string `json:"issued_at"`
	Next     bool   `json:"next"`
}

type Dashboard struct {
	CurrentServing string           `json:"current_serving"`
	Queue          []DashboardEntry `json:"queue"`
	Count          int              `json:"count"`
	Date           string           `json:"date"`
}
