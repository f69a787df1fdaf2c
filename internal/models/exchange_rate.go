package models

import "github.com/shopspring/decimal"

// ExchangeRate is an immutable historical record of a conversion rate between
// two currencies on a given day. Multiple providers may coexist for the same
// pair and date; dates are stored as "YYYY-MM-DD" so recency comparisons are
// plain string comparisons.
type ExchangeRate struct {
	Base
	BaseCurrency  string          `gorm:"size:3;not null;index:idx_rate_pair_date" json:"base_currency"`
	QuoteCurrency string          `gorm:"size:3;not null;index:idx_rate_pair_date" json:"quote_currency"`
	Rate          decimal.Decimal `gorm:"type:numeric(20,10);not null" json:"rate"`
	Date          string          `gorm:"size:10;not null;index:idx_rate_pair_date" json:"date"`
	Provider      string          `gorm:"not null" json:"provider"`
}
