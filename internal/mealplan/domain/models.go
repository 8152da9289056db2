// Package domain contains meal plans offered by a kitchen and their trial configuration.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BillingCycle string

const (
	Daily    BillingCycle = "daily"
	Weekly   BillingCycle = "weekly"
	Biweekly BillingCycle = "biweekly"
	Monthly  BillingCycle = "monthly"
	OneOff   BillingCycle = "one-off"
)

func ParseBillingCycle(value string) (BillingCycle, error) {
	switch BillingCycle(strings.ToLower(strings.TrimSpace(value))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Biweekly:
		return Biweekly, nil
	case Monthly:
		return Monthly, nil
	case OneOff:
		return OneOff, nil
	default:
		return "", ErrInvalidBillingCycle
	}
}

type MealPlan struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	KitchenID    snowflake.ID    `json:"kitchen_id" gorm:"not null;index"`
	Name         string          `json:"name" gorm:"type:text;not null"`
	Slug         string          `json:"slug" gorm:"type:varchar(191);not null;index"`
	Description  string          `json:"description,omitempty" gorm:"type:text"`
	BasePrice    decimal.Decimal `json:"base_price" gorm:"type:numeric(12,2);not null"`
	BillingCycle BillingCycle    `json:"billing_cycle" gorm:"type:text;not null"`
	Active       bool            `json:"active" gorm:"not null"`

	TrialEnabled          bool             `json:"trial_enabled" gorm:"not null"`
	TrialOrderLimit       *int             `json:"trial_order_limit,omitempty"`
	TrialPrice            *decimal.Decimal `json:"trial_price,omitempty" gorm:"type:numeric(12,2)"`
	TrialValidityMode     *string          `json:"trial_validity_mode,omitempty" gorm:"type:text"`
	TrialNewCustomersOnly bool             `json:"trial_new_customers_only" gorm:"not null"`

	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"not null"`
}

func (MealPlan) TableName() string { return "meal_plans" }
