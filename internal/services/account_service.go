package services

import (
	"errors"
	"slices"

	"gorm.io/gorm"

	"centavo/internal/config"
	apperrors "centavo/internal/errors"
	"centavo/internal/models"
	"centavo/internal/pagination"
)

// accountService handles account-related business logic. Every balance
// mutation in the system goes through AdjustBalance or UpdateBalances so the
// overdraft policy and the ledger invariant have a single enforcement point.
type accountService struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, cfg *config.Config) AccountServicer {
	return &accountService{db: db, cfg: cfg}
}

// CreateAccount creates a new account for a user.
func (s *accountService) CreateAccount(userID string, input CreateAccountInput) (*models.Account, error) {
	if input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if input.Currency == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "currency is required")
	}

	account := &models.Account{
		UserID:              userID,
		Name:                input.Name,
		Type:                input.Type,
		Description:         input.Description,
		Currency:            input.Currency,
		BalanceMinor:        input.InitialBalanceMinor,
		InitialBalanceMinor: input.InitialBalanceMinor,
		IsActive:            true,
	}

	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// GetUserAccounts retrieves a paginated list of a user's accounts.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.Model(&models.Account{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at ASC").
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID for a specific user.
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates an account's descriptive fields. Balance is not
// updatable here; it only moves through AdjustBalance and UpdateBalances.
func (s *accountService) UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if fields.Name != nil {
		if *fields.Name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name cannot be empty")
		}
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}
	if len(updates) == 0 {
		return account, nil
	}

	if err := s.db.Model(account).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// DeactivateAccount marks an account inactive while preserving its history.
func (s *accountService) DeactivateAccount(userID, accountID string) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}
	if err := s.db.Model(account).Update("is_active", false).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteAccount hard-deletes an account. Accounts that any transaction still
// references can only be deactivated, so the transaction log keeps its
// integrity.
func (s *accountService) DeleteAccount(userID, accountID string) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&models.Transaction{}).
		Where("account_id = ?", accountID).
		Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrAccountInUse
	}

	if err := s.db.Delete(account).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// allowsOverdraft reports whether the account may carry a negative balance.
func (s *accountService) allowsOverdraft(account *models.Account) bool {
	if s.cfg.AllowOverdraft {
		return true
	}
	return slices.Contains(s.cfg.OverdraftTypes, string(account.Type))
}

// AdjustBalance applies a signed minor-unit delta to an account balance inside
// the caller's database transaction. The increment is pushed down to SQL so
// concurrent adjustments cannot lose updates.
func (s *accountService) AdjustBalance(tx *gorm.DB, userID, accountID string, deltaMinor int64) (*models.Account, error) {
	var account models.Account
	if err := tx.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if deltaMinor < 0 && account.BalanceMinor+deltaMinor < 0 && !s.allowsOverdraft(&account) {
		return nil, apperrors.ErrInsufficientBalance
	}

	result := tx.Model(&models.Account{}).
		Where("id = ? AND user_id = ?", accountID, userID).
		UpdateColumn("balance_minor", gorm.Expr("balance_minor + ?", deltaMinor))
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrAccountNotFound
	}

	account.BalanceMinor += deltaMinor
	return &account, nil
}

// UpdateBalances sets several account balances as one all-or-nothing batch.
// Each account's initial balance is recalibrated so the ledger invariant
// (balance = initial + signed transaction sum) keeps holding afterwards.
func (s *accountService) UpdateBalances(userID string, updates []BalanceUpdate) ([]models.Account, error) {
	if len(updates) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no balance updates provided")
	}

	var accounts []models.Account
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			var account models.Account
			if err := tx.Where("id = ? AND user_id = ?", u.AccountID, userID).First(&account).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.ErrAccountNotFound
				}
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}

			sum, err := signedTransactionSum(tx, u.AccountID)
			if err != nil {
				return err
			}

			account.BalanceMinor = u.NewBalanceMinor
			account.InitialBalanceMinor = u.NewBalanceMinor - sum
			if err := tx.Model(&models.Account{}).
				Where("id = ?", account.ID).
				UpdateColumns(map[string]interface{}{
					"balance_minor":         account.BalanceMinor,
					"initial_balance_minor": account.InitialBalanceMinor,
				}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			accounts = append(accounts, account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// VerifyLedger checks the ledger invariant for one account: the stored balance
// must equal the initial balance plus the signed sum of all its transactions.
// A mismatch is reported, never repaired.
func (s *accountService) VerifyLedger(userID, accountID string) error {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return err
	}

	sum, err := signedTransactionSum(s.db, accountID)
	if err != nil {
		return err
	}

	if account.InitialBalanceMinor+sum != account.BalanceMinor {
		return apperrors.ErrLedgerInconsistent
	}
	return nil
}

// signedTransactionSum computes the signed minor-unit sum of an account's
// transactions: income and incoming transfers count positive, expenses and
// outgoing transfers negative.
func signedTransactionSum(tx *gorm.DB, accountID string) (int64, error) {
	var sum int64
	err := tx.Model(&models.Transaction{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(CASE WHEN type IN ? THEN amount_minor ELSE -amount_minor END), 0)",
			[]models.TransactionType{models.TransactionTypeIncome, models.TransactionTypeTransferIn}).
		Scan(&sum).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return sum, nil
}
