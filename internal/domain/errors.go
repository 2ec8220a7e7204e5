package domain

import "errors"

var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrNoQuotes      = errors.New("no quotes returned")
)
