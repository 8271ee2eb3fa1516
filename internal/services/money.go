package services

import "math"

// Balances are stored in integer paise; the HTTP surface speaks rupees.

func PaiseFromRupees(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

func RupeesFromPaise(paise int64) float64 {
	return float64(paise) / 100
}
