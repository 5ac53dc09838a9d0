package model

type LoginRequest struct {
	Pin string `json:"pin" validate:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type ChangePinRequest struct {
	Pin     string `json:"pin" validate:"required,len=6,numeric"`
	Confirm string `json:"confirm" validate:"required"`
}

type CallNextResponse struct {
	Called *LocalTicket `json:"called"`
}

type StatsRequest struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

type StatsResponse struct {
	Date   string `json:"date"`
	Issued int64  `json:"issued"`
	Called int64  `json:"called"`
	Resets int64  `json:"resets"`
}
