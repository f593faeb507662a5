package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"solcast/internal/models"
	"solcast/internal/observability"
	"solcast/internal/paypal"
	"solcast/internal/repository"
)

// Checkout errors map to the storefront redirect codes.
var (
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrMalformedCustomID   = errors.New("malformed purchase reference")
)

// PaymentProcessor is the slice of the PayPal client the service needs.
type PaymentProcessor interface {
	CreateOrder(ctx context.Context, amountUSD float64, description, customID, returnURL, cancelURL string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureResult, error)
}

// SolcitoService handles the platform currency: balances, gifts, storefront
// checkout and capture.
type SolcitoService struct {
	repo      repository.SolcitoRepository
	users     repository.UserRepository
	processor PaymentProcessor
	appURL    string
}

// NewSolcitoService returns a SolcitoService.
func NewSolcitoService(repo repository.SolcitoRepository, users repository.UserRepository, processor PaymentProcessor, appURL string) *SolcitoService {
	return &SolcitoService{repo: repo, users: users, processor: processor, appURL: appURL}
}

// Packages returns the storefront catalog.
func (s *SolcitoService) Packages() []models.SolcitoPackage {
	return models.SolcitoPackages
}

// Balance returns the user's current solcito balance.
func (s *SolcitoService) Balance(ctx context.Context, userID uint) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

// Transactions lists the user's currency history, newest first.
func (s *SolcitoService) Transactions(ctx context.Context, userID uint, limit, offset int) ([]models.SolcitoTransaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// Gift transfers amount from sender to receiver atomically.
func (s *SolcitoService) Gift(ctx context.Context, senderID, receiverID uint, amount int64) (*models.SolcitoTransaction, error) {
	tx, err := s.repo.Gift(ctx, senderID, receiverID, amount)
	if err != nil {
		return nil, err
	}
	observability.GiftsTotal.Inc()
	return tx, nil
}

// purchaseRef is the context packed into the processor's custom_id field:
// "<userID>|<packageID>|<solcitos>".
func purchaseRef(userID uint, packageID string, solcitos int64) string {
	return fmt.Sprintf("%d|%s|%d", userID, packageID, solcitos)
}

func parsePurchaseRef(ref string) (userID uint, packageID string, solcitos int64, err error) {
	parts := strings.Split(ref, "|")
	if len(parts) != 3 {
		return 0, "", 0, ErrMalformedCustomID
	}
	uid, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, "", 0, ErrMalformedCustomID
	}
	amount, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || amount <= 0 {
		return 0, "", 0, ErrMalformedCustomID
	}
	return uint(uid), parts[1], amount, nil
}

// CheckoutResult is the created order handed back to the storefront.
type CheckoutResult struct {
	OrderID     string `json:"order_id"`
	ApprovalURL string `json:"approval_url"`
}

// CreateOrder starts a checkout for the given package. The buyer approves the
// order on the processor's site and lands back on the success endpoint.
func (s *SolcitoService) CreateOrder(ctx context.Context, userID uint, packageID string) (*CheckoutResult, error) {
	pkg, ok := models.PackageByID(packageID)
	if !ok {
		return nil, models.NewNotFoundError("Package", packageID)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := pkg.Solcitos + pkg.Bonus
	description := fmt.Sprintf("%d Solcitos (%s)", total, pkg.Name)
	order, err := s.processor.CreateOrder(ctx,
		pkg.PriceUSD,
		description,
		purchaseRef(user.ID, pkg.ID, total),
		s.appURL+"/api/payments/paypal/success",
		s.appURL+"/solcitos",
	)
	if err != nil {
		return nil, err
	}

	approval := order.ApprovalURL()
	if approval == "" {
		return nil, fmt.Errorf("order %s has no approval link", order.ID)
	}
	return &CheckoutResult{OrderID: order.ID, ApprovalURL: approval}, nil
}

// Capture captures an approved order and credits the purchased solcitos.
// Crediting is keyed on the order ID: a redelivered capture for the same
// order returns the original transaction and credits nothing.
func (s *SolcitoService) Capture(ctx context.Context, orderID string) (*models.SolcitoTransaction, error) {
	// A capture retried after the processor already completed it errors on
	// the processor side; check our ledger first.
	if existing, err := s.repo.GetByPaymentID(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		observability.PaymentCaptures.WithLabelValues("duplicate").Inc()
		return existing, nil
	}

	result, err := s.processor.CaptureOrder(ctx, orderID)
	if err != nil {
		observability.PaymentCaptures.WithLabelValues("error").Inc()
		return nil, err
	}
	if result.Status != paypal.StatusCompleted {
		observability.PaymentCaptures.WithLabelValues("not_completed").Inc()
		return nil, ErrPaymentNotCompleted
	}

	userID, _, solcitos, err := parsePurchaseRef(result.CustomID)
	if err != nil {
		observability.PaymentCaptures.WithLabelValues("error").Inc()
		return nil, err
	}

	tx, err := s.repo.CreditPurchase(ctx, userID, solcitos, orderID, "paypal")
	if errors.Is(err, repository.ErrDuplicatePayment) {
		// Lost the race against a concurrent capture of the same order.
		observability.PaymentCaptures.WithLabelValues("duplicate").Inc()
		return s.repo.GetByPaymentID(ctx, orderID)
	}
	if err != nil {
		observability.PaymentCaptures.WithLabelValues("error").Inc()
		return nil, err
	}

	observability.PaymentCaptures.WithLabelValues("credited").Inc()
	return tx, nil
}
