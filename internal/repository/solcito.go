package repository

import (
	"context"
	"errors"

	"solcast/internal/cache"
	"solcast/internal/models"

	"gorm.io/gorm"
)

// ErrDuplicatePayment is returned when a capture has already been credited
// for the same external payment ID.
var ErrDuplicatePayment = errors.New("payment already captured")

// SolcitoRepository defines persistence operations for the platform currency.
// Transfers and credits run inside a single database transaction so a balance
// is never debited without the matching credit and ledger row.
type SolcitoRepository interface {
	GetBalance(ctx context.Context, userID uint) (int64, error)
	// Gift atomically moves amount from sender to receiver and records the
	// transfer. Fails without side effects when the sender balance is short.
	Gift(ctx context.Context, senderID, receiverID uint, amount int64) (*models.SolcitoTransaction, error)
	// CreditPurchase credits amount to the user keyed on the external
	// paymentID. A repeated paymentID returns ErrDuplicatePayment and
	// credits nothing.
	CreditPurchase(ctx context.Context, userID uint, amount int64, paymentID, method string) (*models.SolcitoTransaction, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*models.SolcitoTransaction, error)
	ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.SolcitoTransaction, error)
}

type solcitoRepository struct {
	db *gorm.DB
}

// NewSolcitoRepository returns a new SolcitoRepository implementation.
func NewSolcitoRepository(db *gorm.DB) SolcitoRepository {
	return &solcitoRepository{db: db}
}

func (r *solcitoRepository) GetBalance(ctx context.Context, userID uint) (int64, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("solcito_balance").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, models.NewNotFoundError("User", userID)
		}
		return 0, models.NewInternalError(err)
	}
	return user.SolcitoBalance, nil
}

func (r *solcitoRepository) Gift(ctx context.Context, senderID, receiverID uint, amount int64) (*models.SolcitoTransaction, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("Gift amount must be positive")
	}
	if senderID == receiverID {
		return nil, models.NewValidationError("Cannot gift solcitos to yourself")
	}

	var tx models.SolcitoTransaction
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var sender models.User
		if err := db.First(&sender, senderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", senderID)
			}
			return models.NewInternalError(err)
		}

		var receiver models.User
		if err := db.First(&receiver, receiverID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", receiverID)
			}
			return models.NewInternalError(err)
		}

		// Guarded debit: the balance condition runs inside the UPDATE so a
		// concurrent gift cannot drive the balance negative.
		debit := db.Model(&models.User{}).
			Where("id = ? AND solcito_balance >= ?", senderID, amount).
			Update("solcito_balance", gorm.Expr("solcito_balance - ?", amount))
		if debit.Error != nil {
			return models.NewInternalError(debit.Error)
		}
		if debit.RowsAffected == 0 {
			return models.NewInsufficientBalanceError(sender.SolcitoBalance, amount)
		}

		credit := db.Model(&models.User{}).
			Where("id = ?", receiverID).
			Update("solcito_balance", gorm.Expr("solcito_balance + ?", amount))
		if credit.Error != nil {
			return models.NewInternalError(credit.Error)
		}

		tx = models.SolcitoTransaction{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Amount:     amount,
			Type:       models.TransactionTypeGift,
		}
		if err := db.Create(&tx).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateUser(ctx, senderID)
	cache.InvalidateUser(ctx, receiverID)
	return &tx, nil
}

func (r *solcitoRepository) CreditPurchase(ctx context.Context, userID uint, amount int64, paymentID, method string) (*models.SolcitoTransaction, error) {
	if amount <= 0 {
		return nil, models.NewValidationError("Credit amount must be positive")
	}
	if paymentID == "" {
		return nil, models.NewValidationError("Payment ID is required")
	}

	var tx models.SolcitoTransaction
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		var existing models.SolcitoTransaction
		err := db.Where("payment_id = ?", paymentID).First(&existing).Error
		if err == nil {
			return ErrDuplicatePayment
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewInternalError(err)
		}

		credit := db.Model(&models.User{}).
			Where("id = ?", userID).
			Update("solcito_balance", gorm.Expr("solcito_balance + ?", amount))
		if credit.Error != nil {
			return models.NewInternalError(credit.Error)
		}
		if credit.RowsAffected == 0 {
			return models.NewNotFoundError("User", userID)
		}

		tx = models.SolcitoTransaction{
			SenderID:      userID,
			ReceiverID:    userID,
			Amount:        amount,
			Type:          models.TransactionTypePurchase,
			PaymentMethod: method,
			PaymentID:     &paymentID,
		}
		if err := db.Create(&tx).Error; err != nil {
			// The unique index on payment_id backstops a concurrent capture
			// that slipped past the lookup above.
			if isUniqueConstraintError(err) {
				return ErrDuplicatePayment
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateUser(ctx, userID)
	return &tx, nil
}

func (r *solcitoRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.SolcitoTransaction, error) {
	var tx models.SolcitoTransaction
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &tx, nil
}

func (r *solcitoRepository) ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.SolcitoTransaction, error) {
	var txs []models.SolcitoTransaction
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Preload("Sender").
		Preload("Receiver").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return txs, nil
}
