package domain

import "github.com/shopspring/decimal"

type Book struct {
	ID              int32           `json:"id"`
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	TotalCopies     int32           `json:"total_copies"`
	AvailableCopies int32           `json:"available_copies"`
}

func (b *Book) InStock() bool {
	return b.AvailableCopies > 0
}
