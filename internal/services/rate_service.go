package services

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"centavo/internal/cache"
	apperrors "centavo/internal/errors"
	"centavo/internal/logger"
	"centavo/internal/models"
)

const (
	rateCacheEntity = "rate"
	rateDateLayout  = "2006-01-02"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// rateService resolves exchange rates with a deterministic fallback chain and
// caches resolutions per (pair, date). Stored rates are immutable history;
// ingestion replaces rows rather than editing them.
type rateService struct {
	db    *gorm.DB
	cache *cache.Cache
	now   func() time.Time
}

// NewRateService creates a new RateServicer backed by the given cache.
func NewRateService(db *gorm.DB, c *cache.Cache) RateServicer {
	return &rateService{db: db, cache: c, now: time.Now}
}

// GetRateWithFallback resolves the rate from base to quote on the given date
// ("YYYY-MM-DD", empty means today). The chain runs in strict order:
//
//  1. same currency: rate 1.0
//  2. exact stored rate for the date
//  3. most recent stored rate on or before the date
//  4. most recent stored inverse rate on or before the date, inverted
//  5. rate 1.0 flagged as fallback
//
// The fallback outcome is cached like any other so repeated lookups stay
// deterministic, and it is the caller's job to refuse or warn on it.
func (s *rateService) GetRateWithFallback(base, quote, date string) (*ResolvedRate, error) {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)
	if !currencyPattern.MatchString(base) || !currencyPattern.MatchString(quote) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "currency codes must be 3-letter ISO 4217")
	}

	if date == "" {
		date = s.now().UTC().Format(rateDateLayout)
	} else if _, err := time.Parse(rateDateLayout, date); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be YYYY-MM-DD")
	}

	if base == quote {
		return &ResolvedRate{Rate: decimal.NewFromInt(1), Source: RateSourceExact, Date: date}, nil
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", base, quote, date)
	if cached, ok := s.cache.Get(rateCacheEntity, cacheKey); ok {
		resolved := cached.(ResolvedRate)
		return &resolved, nil
	}

	resolved, err := s.resolve(base, quote, date)
	if err != nil {
		return nil, err
	}

	s.cache.Put(rateCacheEntity, cacheKey, *resolved)
	return resolved, nil
}

func (s *rateService) resolve(base, quote, date string) (*ResolvedRate, error) {
	var row models.ExchangeRate

	// Exact match for the requested date. Provider ties break on recency of
	// ingestion.
	err := s.db.Where("base_currency = ? AND quote_currency = ? AND date = ?", base, quote, date).
		Order("created_at DESC").
		First(&row).Error
	if err == nil {
		return &ResolvedRate{Rate: row.Rate, Source: RateSourceExact, Date: row.Date}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Most recent rate on or before the date.
	err = s.db.Where("base_currency = ? AND quote_currency = ? AND date <= ?", base, quote, date).
		Order("date DESC, created_at DESC").
		First(&row).Error
	if err == nil {
		return &ResolvedRate{Rate: row.Rate, Source: RateSourceLatest, Date: row.Date}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Inverse pair, inverted.
	err = s.db.Where("base_currency = ? AND quote_currency = ? AND date <= ?", quote, base, date).
		Order("date DESC, created_at DESC").
		First(&row).Error
	if err == nil {
		if row.Rate.IsZero() {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("stored zero rate for %s/%s on %s", quote, base, row.Date))
		}
		return &ResolvedRate{
			Rate:   decimal.NewFromInt(1).Div(row.Rate),
			Source: RateSourceLatest,
			Date:   row.Date,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Warnw("no stored exchange rate, falling back to 1.0",
		"base", base, "quote", quote, "date", date)
	return &ResolvedRate{Rate: decimal.NewFromInt(1), Source: RateSourceFallback, Date: date}, nil
}

// IngestRates stores a batch of rates, replacing any existing row for the same
// pair, date and provider. The whole batch commits or none of it does, and the
// rate cache is invalidated afterwards so resolutions see the new data.
func (s *rateService) IngestRates(rates []RateInput) (int, error) {
	if len(rates) == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "no rates provided")
	}

	count := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, in := range rates {
			base := strings.ToUpper(in.BaseCurrency)
			quote := strings.ToUpper(in.QuoteCurrency)
			if !currencyPattern.MatchString(base) || !currencyPattern.MatchString(quote) {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "currency codes must be 3-letter ISO 4217")
			}
			if base == quote {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "base and quote currency must differ")
			}
			if !in.Rate.IsPositive() {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "rate must be positive")
			}
			if _, err := time.Parse(rateDateLayout, in.Date); err != nil {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be YYYY-MM-DD")
			}
			provider := in.Provider
			if provider == "" {
				provider = "manual"
			}

			if err := tx.Where("base_currency = ? AND quote_currency = ? AND date = ? AND provider = ?",
				base, quote, in.Date, provider).
				Delete(&models.ExchangeRate{}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}

			row := models.ExchangeRate{
				BaseCurrency:  base,
				QuoteCurrency: quote,
				Rate:          in.Rate,
				Date:          in.Date,
				Provider:      provider,
			}
			if err := tx.Create(&row).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.cache.Invalidate(rateCacheEntity)
	return count, nil
}

// GetRateHistory returns the stored rates for a pair over the trailing window.
func (s *rateService) GetRateHistory(base, quote string, days int) ([]RatePoint, error) {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)
	if !currencyPattern.MatchString(base) || !currencyPattern.MatchString(quote) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "currency codes must be 3-letter ISO 4217")
	}
	if days <= 0 {
		days = 30
	}

	since := s.now().UTC().AddDate(0, 0, -days).Format(rateDateLayout)

	var rows []models.ExchangeRate
	if err := s.db.Where("base_currency = ? AND quote_currency = ? AND date >= ?", base, quote, since).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrRateUnavailable
	}

	points := make([]RatePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, RatePoint{Date: r.Date, Rate: r.Rate})
	}
	return points, nil
}

// SupportedCurrencies lists every currency appearing on either side of a
// stored rate, sorted.
func (s *rateService) SupportedCurrencies() ([]string, error) {
	var bases, quotes []string
	if err := s.db.Model(&models.ExchangeRate{}).Distinct("base_currency").Pluck("base_currency", &bases).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.ExchangeRate{}).Distinct("quote_currency").Pluck("quote_currency", &quotes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	seen := make(map[string]struct{}, len(bases)+len(quotes))
	for _, c := range append(bases, quotes...) {
		seen[c] = struct{}{}
	}
	currencies := make([]string, 0, len(seen))
	for c := range seen {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	return currencies, nil
}
