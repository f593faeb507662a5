// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// TransactionType classifies a solcito ledger entry.
type TransactionType string

const (
	// TransactionTypePurchase is a storefront purchase credit.
	TransactionTypePurchase TransactionType = "PURCHASE"
	// TransactionTypeGift is a viewer-to-creator gift transfer.
	TransactionTypeGift TransactionType = "GIFT"
	// TransactionTypeSubscription is a subscription-related debit.
	TransactionTypeSubscription TransactionType = "SUBSCRIPTION"
)

// SolcitoTransaction records a completed credit or debit of the platform
// currency. PaymentID carries the external processor's identifier and is
// unique so a re-delivered capture can never double-credit.
type SolcitoTransaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SenderID      uint            `gorm:"not null;index" json:"sender_id"`
	ReceiverID    uint            `gorm:"not null;index" json:"receiver_id"`
	Amount        int64           `gorm:"not null" json:"amount"`
	Type          TransactionType `gorm:"type:varchar(20);not null" json:"type"`
	PaymentMethod string          `gorm:"size:20" json:"payment_method,omitempty"`
	PaymentID     *string         `gorm:"size:100;uniqueIndex" json:"payment_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`

	Sender   User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

// SolcitoPackage defines a purchasable bundle: price, base amount and bonus.
type SolcitoPackage struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	PriceUSD float64 `json:"price_usd"`
	Solcitos int64   `json:"solcitos"`
	Bonus    int64   `json:"bonus"`
}

// SolcitoPackages is the fixed storefront catalog.
var SolcitoPackages = []SolcitoPackage{
	{ID: "starter", Name: "Chispita", PriceUSD: 0.99, Solcitos: 100, Bonus: 0},
	{ID: "basic", Name: "Destello", PriceUSD: 4.99, Solcitos: 500, Bonus: 25},
	{ID: "popular", Name: "Llama", PriceUSD: 9.99, Solcitos: 1100, Bonus: 100},
	{ID: "plus", Name: "Hoguera", PriceUSD: 24.99, Solcitos: 3000, Bonus: 400},
	{ID: "pro", Name: "Supernova", PriceUSD: 49.99, Solcitos: 6500, Bonus: 1000},
	{ID: "max", Name: "Sol Radiante", PriceUSD: 99.99, Solcitos: 14000, Bonus: 2500},
}

// PackageByID looks up a storefront package.
func PackageByID(id string) (SolcitoPackage, bool) {
	for _, p := range SolcitoPackages {
		if p.ID == id {
			return p, true
		}
	}
	return SolcitoPackage{}, false
}
