package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GiftCard represents the gift_cards table. deleted_at is a plain
// nullable column filtered explicitly per query, never by a global
// scope.
type GiftCard struct {
	CardID             string     `gorm:"type:uuid;primaryKey"`
	Code               string     `gorm:"not null;uniqueIndex:uniq_gift_cards_code"`
	OriginalValueCents int64      `gorm:"not null"`
	CurrentValueCents  int64      `gorm:"not null"`
	Email              string     `gorm:"not null"`
	Name               string     `gorm:"not null"`
	Note               string     `gorm:""`
	UserID             *string    `gorm:"index:idx_gift_cards_user"`
	VariantID          *string    `gorm:""`
	LineItemID         *string    `gorm:""`
	ExpirationDate     time.Time  `gorm:"not null;index:idx_gift_cards_expiration"`
	CreatedAt          time.Time  `gorm:"not null"`
	DeletedAt          *time.Time `gorm:"index:idx_gift_cards_deleted"`
}

func (GiftCard) TableName() string { return "gift_cards" }

func (card *GiftCard) BeforeCreate(tx *gorm.DB) error {
	if card.CardID == "" {
		card.CardID = uuid.NewString()
	}
	return nil
}

// GiftCardTransaction mirrors the gift_card_transactions table.
// Rows are append-only.
type GiftCardTransaction struct {
	TransactionID string    `gorm:"type:uuid;primaryKey"`
	GiftCardID    string    `gorm:"type:uuid;not null;index:idx_transactions_card_created,priority:1"`
	OrderID       string    `gorm:"not null"`
	AmountCents   int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null;index:idx_transactions_card_created,priority:2"`
}

func (GiftCardTransaction) TableName() string { return "gift_card_transactions" }

func (transaction *GiftCardTransaction) BeforeCreate(tx *gorm.DB) error {
	if transaction.TransactionID == "" {
		transaction.TransactionID = uuid.NewString()
	}
	return nil
}

// Calculator mirrors the gift_card_calculators table. The row outlives
// a soft delete of its card.
type Calculator struct {
	CalculatorID string         `gorm:"type:uuid;primaryKey"`
	GiftCardID   string         `gorm:"type:uuid;not null;uniqueIndex:uniq_calculators_card"`
	Type         string         `gorm:"not null"`
	Preferences  datatypes.JSON `gorm:"not null"`
}

func (Calculator) TableName() string { return "gift_card_calculators" }

func (calculator *Calculator) BeforeCreate(tx *gorm.DB) error {
	if calculator.CalculatorID == "" {
		calculator.CalculatorID = uuid.NewString()
	}
	return nil
}
