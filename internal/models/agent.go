package models

type Agent struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	BusinessName   string `json:"business_name"`
	BusinessNumber string `json:"business_number"`
	Location       string `json:"location"`
	// Basis points; informational, every observed flow pays 0 commission.
	CommissionRate int64 `json:"commission_rate"`
	IsActive       bool  `json:"is_active"`
}
