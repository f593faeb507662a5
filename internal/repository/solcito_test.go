package repository

import (
	"context"
	"testing"

	"solcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSQLiteDB opens an isolated in-memory database. The transactional
// behavior under test (guarded debits, idempotent captures) needs real SQL
// semantics that sqlmock cannot provide.
func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Stream{},
		&models.Follow{},
		&models.Block{},
		&models.ChatMessage{},
		&models.ChatSettings{},
		&models.SolcitoTransaction{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, balance int64) *models.User {
	t.Helper()
	u := &models.User{
		Username:       username,
		Email:          username + "@example.com",
		Password:       "hashed",
		SolcitoBalance: balance,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func balanceOf(t *testing.T, db *gorm.DB, id uint) int64 {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return u.SolcitoBalance
}

func TestSolcitoRepository_Gift(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewSolcitoRepository(db)
	ctx := context.Background()

	sender := seedUser(t, db, "pepe", 500)
	receiver := seedUser(t, db, "maria", 100)

	tx, err := repo.Gift(ctx, sender.ID, receiver.ID, 150)
	require.NoError(t, err)

	assert.Equal(t, int64(350), balanceOf(t, db, sender.ID))
	assert.Equal(t, int64(250), balanceOf(t, db, receiver.ID))
	assert.Equal(t, models.TransactionTypeGift, tx.Type)
	assert.Equal(t, int64(150), tx.Amount)
	assert.Equal(t, sender.ID, tx.SenderID)
	assert.Equal(t, receiver.ID, tx.ReceiverID)
}

func TestSolcitoRepository_Gift_InsufficientBalance(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewSolcitoRepository(db)
	ctx := context.Background()

	sender := seedUser(t, db, "pepe", 50)
	receiver := seedUser(t, db, "maria", 0)

	_, err := repo.Gift(ctx, sender.ID, receiver.ID, 150)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INSUFFICIENT_BALANCE", appErr.Code)

	// Nothing moved, nothing recorded
	assert.Equal(t, int64(50), balanceOf(t, db, sender.ID))
	assert.Equal(t, int64(0), balanceOf(t, db, receiver.ID))

	var count int64
	require.NoError(t, db.Model(&models.SolcitoTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSolcitoRepository_Gift_Validation(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewSolcitoRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "pepe", 500)

	_, err := repo.Gift(ctx, u.ID, u.ID, 100)
	assert.Error(t, err, "self gift")

	_, err = repo.Gift(ctx, u.ID, 999, 0)
	assert.Error(t, err, "zero amount")

	_, err = repo.Gift(ctx, u.ID, 999, -5)
	assert.Error(t, err, "negative amount")

	_, err = repo.Gift(ctx, u.ID, 999, 100)
	assert.Error(t, err, "unknown receiver")
	assert.Equal(t, int64(500), balanceOf(t, db, u.ID))
}

func TestSolcitoRepository_CreditPurchase(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewSolcitoRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "maria", 0)

	tx, err := repo.CreditPurchase(ctx, u.ID, 1200, "PAYPAL-ORDER-1", "paypal")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), balanceOf(t, db, u.ID))
	assert.Equal(t, models.TransactionTypePurchase, tx.Type)
	require.NotNil(t, tx.PaymentID)
	assert.Equal(t, "PAYPAL-ORDER-1", *tx.PaymentID)
}

func TestSolcitoRepository_CreditPurchase_Idempotent(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewSolcitoRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "maria", 0)

	_, err := repo.CreditPurchase(ctx, u.ID, 1200, "PAYPAL-ORDER-1", "paypal")
	require.NoError(t, err)

	// Redelivered capture: same payment ID must credit nothing
	_, err = repo.CreditPurchase(ctx, u.ID, 1200, "PAYPAL-ORDER-1", "paypal")
	assert.ErrorIs(t, err, ErrDuplicatePayment)
	assert.Equal(t, int64(1200), balanceOf(t, db, u.ID))

	var count int64
	require.NoError(t, db.Model(&models.SolcitoTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// A different payment ID is a new purchase
	_, err = repo.CreditPurchase(ctx, u.ID, 500, "PAYPAL-ORDER-2", "paypal")
	require.NoError(t, err)
	assert.Equal(t, int64(1700), balanceOf(t, db, u.ID))
}

func TestSolcitoRepository_GetByPaymentID(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewSolcitoRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "maria", 0)
	_, err := repo.CreditPurchase(ctx, u.ID, 100, "PAYPAL-ORDER-9", "paypal")
	require.NoError(t, err)

	tx, err := repo.GetByPaymentID(ctx, "PAYPAL-ORDER-9")
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, int64(100), tx.Amount)

	missing, err := repo.GetByPaymentID(ctx, "PAYPAL-ORDER-NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSolcitoRepository_ListTransactions(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewSolcitoRepository(db)
	ctx := context.Background()

	a := seedUser(t, db, "pepe", 1000)
	b := seedUser(t, db, "maria", 0)
	c := seedUser(t, db, "lucas", 1000)

	_, err := repo.Gift(ctx, a.ID, b.ID, 100)
	require.NoError(t, err)
	_, err = repo.Gift(ctx, c.ID, b.ID, 200)
	require.NoError(t, err)
	_, err = repo.Gift(ctx, a.ID, c.ID, 50)
	require.NoError(t, err)

	txs, err := repo.ListTransactions(ctx, b.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, b.ID, tx.ReceiverID)
	}

	txs, err = repo.ListTransactions(ctx, a.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
