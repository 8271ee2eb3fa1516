package models

import "time"

// PaymentSettings is the single-row table holding the platform's collection
// channel shown to depositing players.
type PaymentSettings struct {
	UPIID     string    `json:"upi_id" db:"upi_id"`
	QRCodeURL string    `json:"qr_code_url" db:"qr_code_url"`
	UpdatedBy string    `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
