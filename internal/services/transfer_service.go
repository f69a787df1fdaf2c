package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "centavo/internal/errors"
	"centavo/internal/models"
	"centavo/internal/money"
)

// transferService moves money between two accounts as a pair of linked
// transactions. Both legs, the link record and both balance updates commit in
// a single database transaction: a failure at any step leaves no trace.
type transferService struct {
	db             *gorm.DB
	accountService AccountServicer
	rateService    RateServicer
}

// NewTransferService creates a new TransferServicer.
func NewTransferService(db *gorm.DB, accountService AccountServicer, rateService RateServicer) TransferServicer {
	return &transferService{
		db:             db,
		accountService: accountService,
		rateService:    rateService,
	}
}

// CreateTransfer creates a transfer from one account to another. The amount is
// given in the source account's currency; a provided exchange rate overrides
// resolution. Cross-currency transfers refuse to proceed on a fallback rate:
// a silent 1:1 conversion between different currencies would corrupt the
// destination balance.
func (s *transferService) CreateTransfer(userID string, input CreateTransferInput) (*TransferResult, error) {
	if !input.AmountMajor.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if input.FeeMinor < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "fee cannot be negative")
	}
	if input.FromAccountID == input.ToAccountID {
		return nil, apperrors.ErrSameAccountTransfer
	}

	fromAccount, err := s.accountService.GetAccountByID(userID, input.FromAccountID)
	if err != nil {
		return nil, err
	}
	toAccount, err := s.accountService.GetAccountByID(userID, input.ToAccountID)
	if err != nil {
		return nil, err
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	rate, source, err := s.transferRate(fromAccount, toAccount, input.ExchangeRate, date)
	if err != nil {
		return nil, err
	}

	amountFromMinor := money.ToMinorUnits(input.AmountMajor, fromAccount.Currency)
	if amountFromMinor <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount rounds to zero in the source currency")
	}
	amountToMinor := money.ConvertMinor(amountFromMinor, fromAccount.Currency, toAccount.Currency, rate)

	baseCurrency, err := s.userBaseCurrency(userID)
	if err != nil {
		return nil, err
	}

	// Base-currency snapshots for each leg in its own currency. Falling back
	// to 1.0 here only degrades reporting, not the transfer itself.
	fromBase, err := s.rateService.GetRateWithFallback(fromAccount.Currency, baseCurrency, date.UTC().Format(rateDateLayout))
	if err != nil {
		return nil, err
	}
	toBase, err := s.rateService.GetRateWithFallback(toAccount.Currency, baseCurrency, date.UTC().Format(rateDateLayout))
	if err != nil {
		return nil, err
	}

	// The fee stays on the outgoing leg so the account's transaction log still
	// sums to its balance.
	outMinor := amountFromMinor + input.FeeMinor

	outLeg := &models.Transaction{
		UserID:          userID,
		AccountID:       fromAccount.ID,
		Type:            models.TransactionTypeTransferOut,
		Currency:        fromAccount.Currency,
		AmountMinor:     outMinor,
		AmountBaseMinor: money.ConvertMinor(outMinor, fromAccount.Currency, baseCurrency, fromBase.Rate),
		ExchangeRate:    fromBase.Rate,
		Description:     input.Description,
		Date:            date,
	}
	inLeg := &models.Transaction{
		UserID:          userID,
		AccountID:       toAccount.ID,
		Type:            models.TransactionTypeTransferIn,
		Currency:        toAccount.Currency,
		AmountMinor:     amountToMinor,
		AmountBaseMinor: money.ConvertMinor(amountToMinor, toAccount.Currency, baseCurrency, toBase.Rate),
		ExchangeRate:    toBase.Rate,
		Description:     input.Description,
		Date:            date,
	}

	var transfer models.Transfer
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(outLeg).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(inLeg).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		transfer = models.Transfer{
			UserID:            userID,
			FromTransactionID: outLeg.ID,
			ToTransactionID:   inLeg.ID,
			FeeMinor:          input.FeeMinor,
		}
		if err := tx.Create(&transfer).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Model(&models.Transaction{}).
			Where("id IN ?", []string{outLeg.ID, inLeg.ID}).
			UpdateColumn("transfer_id", transfer.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		outLeg.TransferID = &transfer.ID
		inLeg.TransferID = &transfer.ID

		if _, err := s.accountService.AdjustBalance(tx, userID, fromAccount.ID, -outMinor); err != nil {
			return err
		}
		if _, err := s.accountService.AdjustBalance(tx, userID, toAccount.ID, amountToMinor); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &TransferResult{
		TransferID:      transfer.ID,
		FromTransaction: outLeg,
		ToTransaction:   inLeg,
		Rate:            rate,
		RateSource:      source,
	}, nil
}

// transferRate determines the conversion rate between the two accounts.
func (s *transferService) transferRate(from, to *models.Account, manual *decimal.Decimal, date time.Time) (decimal.Decimal, RateSource, error) {
	if from.Currency == to.Currency {
		return decimal.NewFromInt(1), RateSourceExact, nil
	}
	if manual != nil {
		if !manual.IsPositive() {
			return decimal.Decimal{}, "", apperrors.WithMessage(apperrors.ErrInvalidInput, "exchange rate must be positive")
		}
		return *manual, RateSourceManual, nil
	}

	resolved, err := s.rateService.GetRateWithFallback(from.Currency, to.Currency, date.UTC().Format(rateDateLayout))
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	if resolved.Source == RateSourceFallback {
		return decimal.Decimal{}, "", apperrors.ErrCurrencyMismatchWithoutRate
	}
	return resolved.Rate, resolved.Source, nil
}

// GetTransferByID retrieves a transfer with both legs for a specific user.
func (s *transferService) GetTransferByID(userID, transferID string) (*models.Transfer, error) {
	var transfer models.Transfer
	err := s.db.Preload("FromTransaction").Preload("ToTransaction").
		Where("id = ? AND user_id = ?", transferID, userID).
		First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransferNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transfer, nil
}

// DeleteTransfer removes a transfer: both legs, the link record and both
// balance reversals happen atomically.
func (s *transferService) DeleteTransfer(userID, transferID string) error {
	transfer, err := s.GetTransferByID(userID, transferID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Transaction{}, "id IN ?",
			[]string{transfer.FromTransactionID, transfer.ToTransactionID}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.Transfer{}, "id = ?", transfer.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if _, err := s.accountService.AdjustBalance(tx, userID,
			transfer.FromTransaction.AccountID, transfer.FromTransaction.AmountMinor); err != nil {
			return err
		}
		if _, err := s.accountService.AdjustBalance(tx, userID,
			transfer.ToTransaction.AccountID, -transfer.ToTransaction.AmountMinor); err != nil {
			return err
		}
		return nil
	})
}

func (s *transferService) userBaseCurrency(userID string) (string, error) {
	var user models.User
	if err := s.db.Select("base_currency").Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user.BaseCurrency, nil
}
