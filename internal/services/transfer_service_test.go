package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"centavo/internal/cache"
	"centavo/internal/models"
	"centavo/internal/testutil"
)

func newTransferTestServices(db *gorm.DB) (AccountServicer, TransferServicer) {
	acctSvc := NewAccountService(db, testConfig())
	rateSvc := NewRateService(db, cache.New(nil))
	return acctSvc, NewTransferService(db, acctSvc, rateSvc)
}

func TestCreateTransfer(t *testing.T) {
	t.Run("same_currency_round_trip", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc, transferSvc := newTransferTestServices(db)
		user := testutil.CreateTestUser(t, db)
		from := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 10000)
		to := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 0)

		result, err := transferSvc.CreateTransfer(user.ID, CreateTransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountMajor:   decimal.NewFromInt(30),
			Description:   "Move savings",
		})
		testutil.AssertNoError(t, err)

		if result.TransferID == "" {
			t.Fatal("expected non-empty transfer ID")
		}
		if result.FromTransaction.Type != models.TransactionTypeTransferOut {
			t.Errorf("expected transfer_out leg, got %s", result.FromTransaction.Type)
		}
		if result.ToTransaction.Type != models.TransactionTypeTransferIn {
			t.Errorf("expected transfer_in leg, got %s", result.ToTransaction.Type)
		}

		fromAfter, _ := acctSvc.GetAccountByID(user.ID, from.ID)
		toAfter, _ := acctSvc.GetAccountByID(user.ID, to.ID)
		if fromAfter.BalanceMinor != 7000 {
			t.Errorf("expected source balance 7000, got %d", fromAfter.BalanceMinor)
		}
		if toAfter.BalanceMinor != 3000 {
			t.Errorf("expected destination balance 3000, got %d", toAfter.BalanceMinor)
		}

		// The combined holdings must be conserved.
		if fromAfter.BalanceMinor+toAfter.BalanceMinor != 10000 {
			t.Errorf("same-currency transfer changed total holdings: %d", fromAfter.BalanceMinor+toAfter.BalanceMinor)
		}
	})

	t.Run("cross_currency_converts_destination", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc, transferSvc := newTransferTestServices(db)
		user := testutil.CreateTestUser(t, db)
		from := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 10000)
		to := testutil.CreateTestAccountWithBalance(t, db, user.ID, "VES", 0)

		today := time.Now().UTC().Format("2006-01-02")
		testutil.CreateTestRate(t, db, "USD", "VES", 139, today)

		result, err := transferSvc.CreateTransfer(user.ID, CreateTransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountMajor:   decimal.NewFromInt(30),
		})
		testutil.AssertNoError(t, err)

		if !result.Rate.Equal(decimal.NewFromInt(139)) {
			t.Errorf("expected rate 139, got %s", result.Rate)
		}

		fromAfter, _ := acctSvc.GetAccountByID(user.ID, from.ID)
		toAfter, _ := acctSvc.GetAccountByID(user.ID, to.ID)
		if fromAfter.BalanceMinor != 7000 {
			t.Errorf("expected source balance 7000, got %d", fromAfter.BalanceMinor)
		}
		// 30.00 USD * 139 = 4170.00 VES
		if toAfter.BalanceMinor != 417000 {
			t.Errorf("expected destination balance 417000, got %d", toAfter.BalanceMinor)
		}
	})

	t.Run("cross_currency_without_rate_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc, transferSvc := newTransferTestServices(db)
		user := testutil.CreateTestUser(t, db)
		from := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 10000)
		to := testutil.CreateTestAccountWithBalance(t, db, user.ID, "VES", 0)

		_, err := transferSvc.CreateTransfer(user.ID, CreateTransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountMajor:   decimal.NewFromInt(30),
		})
		testutil.AssertAppError(t, err, "CURRENCY_MISMATCH_WITHOUT_RATE")

		fromAfter, _ := acctSvc.GetAccountByID(user.ID, from.ID)
		if fromAfter.BalanceMinor != 10000 {
			t.Errorf("expected source balance untouched at 10000, got %d", fromAfter.BalanceMinor)
		}
	})

	t.Run("manual_rate_overrides_resolution", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc, transferSvc := newTransferTestServices(db)
		user := testutil.CreateTestUser(t, db)
		from := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 10000)
		to := testutil.CreateTestAccountWithBalance(t, db, user.ID, "VES", 0)

		manual := decimal.NewFromInt(140)
		result, err := transferSvc.CreateTransfer(user.ID, CreateTransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountMajor:   decimal.NewFromInt(10),
			ExchangeRate:  &manual,
		})
		testutil.AssertNoError(t, err)
		if result.RateSource != RateSourceManual {
			t.Errorf("expected manual rate source, got %s", result.RateSource)
		}

		toAfter, _ := acctSvc.GetAccountByID(user.ID, to.ID)
		if toAfter.BalanceMinor != 140000 {
			t.Errorf("expected destination balance 140000, got %d", toAfter.BalanceMinor)
		}
	})

	t.Run("same_account_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		_, transferSvc := newTransferTestServices(db)
		user := testutil.CreateTestUser(t, db)
		account := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 10000)

		_, err := transferSvc.CreateTransfer(user.ID, CreateTransferInput{
			FromAccountID: account.ID,
			ToAccountID:   account.ID,
			AmountMajor:   decimal.NewFromInt(10),
		})
		testutil.AssertAppError(t, err, "SAME_ACCOUNT_TRANSFER")
	})

	t.Run("insufficient_balance_leaves_no_trace", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc, transferSvc := newTransferTestServices(db)
		user := testutil.CreateTestUser(t, db)
		from := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 1000)
		to := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 0)

		_, err := transferSvc.CreateTransfer(user.ID, CreateTransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountMajor:   decimal.NewFromInt(30),
		})
		testutil.AssertAppError(t, err, "INSUFFICIENT_BALANCE")

		fromAfter, _ := acctSvc.GetAccountByID(user.ID, from.ID)
		toAfter, _ := acctSvc.GetAccountByID(user.ID, to.ID)
		if fromAfter.BalanceMinor != 1000 || toAfter.BalanceMinor != 0 {
			t.Errorf("expected balances untouched, got %d and %d", fromAfter.BalanceMinor, toAfter.BalanceMinor)
		}

		var txCount, transferCount int64
		db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&txCount)
		db.Model(&models.Transfer{}).Where("user_id = ?", user.ID).Count(&transferCount)
		if txCount != 0 || transferCount != 0 {
			t.Errorf("expected no rows after rollback, got %d transactions and %d transfers", txCount, transferCount)
		}
	})

	t.Run("fee_charged_to_source", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc, transferSvc := newTransferTestServices(db)
		user := testutil.CreateTestUser(t, db)
		from := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 10000)
		to := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 0)

		_, err := transferSvc.CreateTransfer(user.ID, CreateTransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountMajor:   decimal.NewFromInt(30),
			FeeMinor:      150,
		})
		testutil.AssertNoError(t, err)

		fromAfter, _ := acctSvc.GetAccountByID(user.ID, from.ID)
		toAfter, _ := acctSvc.GetAccountByID(user.ID, to.ID)
		if fromAfter.BalanceMinor != 6850 {
			t.Errorf("expected source balance 6850 after fee, got %d", fromAfter.BalanceMinor)
		}
		if toAfter.BalanceMinor != 3000 {
			t.Errorf("expected destination balance 3000, got %d", toAfter.BalanceMinor)
		}
	})

	t.Run("legs_linked_to_transfer", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		_, transferSvc := newTransferTestServices(db)
		user := testutil.CreateTestUser(t, db)
		from := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 10000)
		to := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 0)

		result, err := transferSvc.CreateTransfer(user.ID, CreateTransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountMajor:   decimal.NewFromInt(10),
		})
		testutil.AssertNoError(t, err)

		transfer, err := transferSvc.GetTransferByID(user.ID, result.TransferID)
		testutil.AssertNoError(t, err)
		if transfer.FromTransaction.ID != result.FromTransaction.ID {
			t.Errorf("from leg mismatch: %s vs %s", transfer.FromTransaction.ID, result.FromTransaction.ID)
		}

		var legs []models.Transaction
		db.Where("transfer_id = ?", result.TransferID).Find(&legs)
		if len(legs) != 2 {
			t.Errorf("expected 2 legs linked to transfer, got %d", len(legs))
		}
	})
}

func TestDeleteTransfer(t *testing.T) {
	t.Run("reverts_both_balances", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		acctSvc, transferSvc := newTransferTestServices(db)
		user := testutil.CreateTestUser(t, db)
		from := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 10000)
		to := testutil.CreateTestAccountWithBalance(t, db, user.ID, "USD", 0)

		result, err := transferSvc.CreateTransfer(user.ID, CreateTransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountMajor:   decimal.NewFromInt(30),
		})
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, transferSvc.DeleteTransfer(user.ID, result.TransferID))

		fromAfter, _ := acctSvc.GetAccountByID(user.ID, from.ID)
		toAfter, _ := acctSvc.GetAccountByID(user.ID, to.ID)
		if fromAfter.BalanceMinor != 10000 || toAfter.BalanceMinor != 0 {
			t.Errorf("expected balances restored, got %d and %d", fromAfter.BalanceMinor, toAfter.BalanceMinor)
		}

		_, err = transferSvc.GetTransferByID(user.ID, result.TransferID)
		testutil.AssertAppError(t, err, "TRANSFER_NOT_FOUND")
	})
}
