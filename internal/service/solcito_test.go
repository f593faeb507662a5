package service

import (
	"context"
	"errors"
	"testing"

	"solcast/internal/models"
	"solcast/internal/paypal"
	"solcast/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeProcessor records calls and plays back scripted results.
type fakeProcessor struct {
	createdCustomID string
	createdAmount   float64
	order           *paypal.Order
	orderErr        error

	captureCalls  int
	captureResult *paypal.CaptureResult
	captureErr    error
}

func (f *fakeProcessor) CreateOrder(_ context.Context, amountUSD float64, _, customID, _, _ string) (*paypal.Order, error) {
	f.createdAmount = amountUSD
	f.createdCustomID = customID
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return f.order, nil
}

func (f *fakeProcessor) CaptureOrder(_ context.Context, _ string) (*paypal.CaptureResult, error) {
	f.captureCalls++
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return f.captureResult, nil
}

type solcitoFixture struct {
	db        *gorm.DB
	svc       *SolcitoService
	processor *fakeProcessor
}

func newSolcitoFixture(t *testing.T) *solcitoFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.SolcitoTransaction{}))

	processor := &fakeProcessor{}
	svc := NewSolcitoService(
		repository.NewSolcitoRepository(db),
		repository.NewUserRepository(db),
		processor,
		"http://localhost:3000",
	)
	return &solcitoFixture{db: db, svc: svc, processor: processor}
}

func (f *solcitoFixture) addUser(t *testing.T, username string, balance int64) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x", SolcitoBalance: balance}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *solcitoFixture) balanceOf(t *testing.T, id uint) int64 {
	t.Helper()
	var u models.User
	require.NoError(t, f.db.First(&u, id).Error)
	return u.SolcitoBalance
}

func TestSolcitoService_CreateOrder(t *testing.T) {
	f := newSolcitoFixture(t)
	u := f.addUser(t, "maria", 0)

	f.processor.order = &paypal.Order{
		ID:     "ORDER123",
		Status: "CREATED",
		Links: []paypal.Link{
			{Href: "https://paypal.example.com/approve?token=ORDER123", Rel: "approve"},
		},
	}

	result, err := f.svc.CreateOrder(context.Background(), u.ID, "popular")
	require.NoError(t, err)
	assert.Equal(t, "ORDER123", result.OrderID)
	assert.Equal(t, "https://paypal.example.com/approve?token=ORDER123", result.ApprovalURL)

	// popular: 1100 + 100 bonus at $9.99, reference carries user, package, total
	assert.Equal(t, 9.99, f.processor.createdAmount)
	assert.Equal(t, purchaseRef(u.ID, "popular", 1200), f.processor.createdCustomID)
}

func TestSolcitoService_CreateOrder_UnknownPackage(t *testing.T) {
	f := newSolcitoFixture(t)
	u := f.addUser(t, "maria", 0)

	_, err := f.svc.CreateOrder(context.Background(), u.ID, "mega-ultra")
	assert.Error(t, err)
}

func TestSolcitoService_Capture(t *testing.T) {
	f := newSolcitoFixture(t)
	u := f.addUser(t, "maria", 0)

	f.processor.captureResult = &paypal.CaptureResult{
		ID:       "ORDER123",
		Status:   paypal.StatusCompleted,
		CustomID: purchaseRef(u.ID, "popular", 1200),
	}

	tx, err := f.svc.Capture(context.Background(), "ORDER123")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), tx.Amount)
	assert.Equal(t, int64(1200), f.balanceOf(t, u.ID))
}

func TestSolcitoService_Capture_CreditsExactlyOnce(t *testing.T) {
	f := newSolcitoFixture(t)
	u := f.addUser(t, "maria", 0)

	f.processor.captureResult = &paypal.CaptureResult{
		ID:       "ORDER123",
		Status:   paypal.StatusCompleted,
		CustomID: purchaseRef(u.ID, "popular", 1200),
	}

	first, err := f.svc.Capture(context.Background(), "ORDER123")
	require.NoError(t, err)

	// Redelivered success redirect: same order, no second credit, no
	// second processor call
	second, err := f.svc.Capture(context.Background(), "ORDER123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.processor.captureCalls)
	assert.Equal(t, int64(1200), f.balanceOf(t, u.ID))
}

func TestSolcitoService_Capture_NotCompleted(t *testing.T) {
	f := newSolcitoFixture(t)
	u := f.addUser(t, "maria", 0)

	f.processor.captureResult = &paypal.CaptureResult{
		ID:       "ORDER123",
		Status:   "PENDING",
		CustomID: purchaseRef(u.ID, "popular", 1200),
	}

	_, err := f.svc.Capture(context.Background(), "ORDER123")
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Zero(t, f.balanceOf(t, u.ID))
}

func TestSolcitoService_Capture_ProcessorError(t *testing.T) {
	f := newSolcitoFixture(t)
	f.addUser(t, "maria", 0)

	f.processor.captureErr = errors.New("paypal 500")

	_, err := f.svc.Capture(context.Background(), "ORDER123")
	assert.Error(t, err)
}

func TestSolcitoService_Capture_MalformedReference(t *testing.T) {
	f := newSolcitoFixture(t)

	f.processor.captureResult = &paypal.CaptureResult{
		ID:       "ORDER123",
		Status:   paypal.StatusCompleted,
		CustomID: "garbage",
	}

	_, err := f.svc.Capture(context.Background(), "ORDER123")
	assert.ErrorIs(t, err, ErrMalformedCustomID)
}

func TestParsePurchaseRef(t *testing.T) {
	t.Parallel()

	userID, pkg, amount, err := parsePurchaseRef("12|popular|1200")
	require.NoError(t, err)
	assert.Equal(t, uint(12), userID)
	assert.Equal(t, "popular", pkg)
	assert.Equal(t, int64(1200), amount)

	for _, bad := range []string{"", "12|popular", "x|popular|1200", "12|popular|x", "12|popular|-5", "a|b|c|d"} {
		_, _, _, err := parsePurchaseRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestSolcitoService_Gift(t *testing.T) {
	f := newSolcitoFixture(t)
	sender := f.addUser(t, "pepe", 500)
	receiver := f.addUser(t, "ana", 0)

	tx, err := f.svc.Gift(context.Background(), sender.ID, receiver.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeGift, tx.Type)
	assert.Equal(t, int64(400), f.balanceOf(t, sender.ID))
	assert.Equal(t, int64(100), f.balanceOf(t, receiver.ID))
}
