package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents a single equity position within a portfolio.
type Holding struct {
	Symbol       string          `json:"symbol" validate:"required"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity" validate:"required"`
	AvgPrice     decimal.Decimal `json:"avg_price"`     // Cost basis per share
	CurrentPrice decimal.Decimal `json:"current_price"` // Live price, zero when no quote is available
}

// EffectivePrice returns the live price when one is present, falling back
// to the cost basis so valuation never silently drops to zero.
func (h *Holding) EffectivePrice() decimal.Decimal {
	if h.CurrentPrice.IsPositive() {
		return h.CurrentPrice
	}
	return h.AvgPrice
}

// ProfitRate returns the percentage gain over cost basis.
// A zero cost basis (free shares, missing data) yields a zero rate
// instead of a division error.
func (h *Holding) ProfitRate() decimal.Decimal {
	if h.AvgPrice.IsZero() {
		return decimal.Zero
	}
	return h.EffectivePrice().Sub(h.AvgPrice).Div(h.AvgPrice).Mul(decimal.NewFromInt(100))
}

// Value returns the position value at the effective price.
func (h *Holding) Value() decimal.Decimal {
	return h.EffectivePrice().Mul(h.Quantity)
}

// Portfolio is a user's set of holdings. Saving a portfolio replaces the
// previous snapshot for that user; the latest snapshot is the working copy.
type Portfolio struct {
	ID        string    `json:"id" badgerhold:"key"`
	UserEmail string    `json:"user_email" badgerhold:"index"`
	Holdings  []Holding `json:"holdings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalValue returns the portfolio value at effective prices.
func (p *Portfolio) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Holdings {
		total = total.Add(p.Holdings[i].Value())
	}
	return total
}

// Symbols returns the holding symbols in portfolio order.
func (p *Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p.Holdings))
	for i := range p.Holdings {
		symbols = append(symbols, p.Holdings[i].Symbol)
	}
	return symbols
}
