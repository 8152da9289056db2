package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID, afterID snowflake.ID, limit int) ([]Order, error)
	CountSlotOrders(ctx context.Context, db *gorm.DB, planID snowflake.ID, mealType scheduledomain.MealType, date civil.Date) (int, error)
	MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	// AcquireGuard blocks until the caller's transaction holds the guard row for key.
	AcquireGuard(ctx context.Context, db *gorm.DB, key string, at time.Time) error
	// PruneGuards deletes up to limit guard rows not touched since before.
	PruneGuards(ctx context.Context, db *gorm.DB, before time.Time, limit int) (int64, error)
}
