package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	orderdomain "github.com/smallbiznis/tiffin/internal/order/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() orderdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *orderdomain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*orderdomain.Order, error) {
	var items []orderdomain.Order
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// ListByCustomer returns newest orders first. afterID is the exclusive cursor, 0 for the first page.
func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID, afterID snowflake.ID, limit int) ([]orderdomain.Order, error) {
	query := db.WithContext(ctx).Where("customer_id = ?", customerID)
	if afterID != 0 {
		query = query.Where("id < ?", afterID)
	}

	var items []orderdomain.Order
	if err := query.Order("id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountSlotOrders(ctx context.Context, db *gorm.DB, planID snowflake.ID, mealType scheduledomain.MealType, date civil.Date) (int, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("meal_plan_id = ? AND meal_type = ? AND scheduled_date = ? AND status <> ?",
			planID, mealType, orderdomain.FormatDate(date), orderdomain.StatusCancelled).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("id = ? AND status = ?", id, orderdomain.StatusPlaced).
		Updates(map[string]any{
			"status":       orderdomain.StatusCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AcquireGuard creates the guard row if needed, then bumps its version. The
// update holds the row lock until db's transaction ends.
func (r *repo) AcquireGuard(ctx context.Context, db *gorm.DB, key string, at time.Time) error {
	guard := &orderdomain.Guard{GuardKey: key, UpdatedAt: at}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(guard).Error
	if err != nil {
		return err
	}

	return db.WithContext(ctx).
		Model(&orderdomain.Guard{}).
		Where("guard_key = ?", key).
		Updates(map[string]any{
			"version":    gorm.Expr("version + 1"),
			"updated_at": at,
		}).Error
}

func (r *repo) PruneGuards(ctx context.Context, db *gorm.DB, before time.Time, limit int) (int64, error) {
	var keys []string
	err := db.WithContext(ctx).
		Model(&orderdomain.Guard{}).
		Where("updated_at < ?", before).
		Order("updated_at ASC").
		Limit(limit).
		Pluck("guard_key", &keys).Error
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	// Re-check the age so a guard bumped since the scan survives.
	result := db.WithContext(ctx).
		Where("guard_key IN ? AND updated_at < ?", keys, before).
		Delete(&orderdomain.Guard{})
	return result.RowsAffected, result.Error
}

// CapacityCounter binds slot order counts to a connection or transaction.
type CapacityCounter struct {
	db   *gorm.DB
	repo orderdomain.Repository
}

func NewCapacityCounter(db *gorm.DB) *CapacityCounter {
	return &CapacityCounter{db: db, repo: Provide()}
}

func (c *CapacityCounter) CountOrders(ctx context.Context, planID snowflake.ID, mealType scheduledomain.MealType, date civil.Date) (int, error) {
	return c.repo.CountSlotOrders(ctx, c.db, planID, mealType, date)
}
