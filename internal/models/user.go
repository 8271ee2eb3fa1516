package models

import "time"

// User holds the player identity together with the wallet state. Balance and
// wagering figures are stored in integer paise; HTTP responses convert to
// rupees at the boundary.
type User struct {
	ID               string     `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	Name             string     `json:"name" db:"name"`
	Role             string     `json:"role" db:"role"` // user or admin
	Balance          int64      `json:"balance" db:"balance"`
	TotalWagered     int64      `json:"total_wagered" db:"total_wagered"`
	WagerRequirement int64      `json:"wager_requirement" db:"wager_requirement"`
	Locked           bool       `json:"locked" db:"locked"`
	LastLogin        *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
