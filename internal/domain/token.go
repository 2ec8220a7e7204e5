package domain

import "time"

// Token is a tradable asset listed on the order desk.
type Token struct {
	ID        string
	Symbol    string
	Name      string
	PriceUSD  float64
	PriceIDR  float64
	Change24h float64
	Active    bool
	UpdatedAt time.Time
}

// TokenPrice is the price snapshot written back onto a token.
type TokenPrice struct {
	PriceUSD  float64
	PriceIDR  float64
	Change24h float64
}
