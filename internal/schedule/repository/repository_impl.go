package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() scheduledomain.Repository {
	return &repo{}
}

// Upsert writes the slot keyed by (meal_plan_id, day_of_week, meal_type); an existing
// row keeps its ID and created_at.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, slot *scheduledomain.Slot) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "meal_plan_id"}, {Name: "day_of_week"}, {Name: "meal_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_available",
			"price_override",
			"service_start_time",
			"service_end_time",
			"order_deadline",
			"delivery_window_start",
			"delivery_window_end",
			"max_orders",
			"updated_at",
		}),
	}).Create(slot).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, planID snowflake.ID, day time.Weekday, mealType scheduledomain.MealType) (*scheduledomain.Slot, error) {
	var items []scheduledomain.Slot
	err := db.WithContext(ctx).
		Where("meal_plan_id = ? AND day_of_week = ? AND meal_type = ?", planID, int(day), mealType).
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

func (r *repo) ListByPlan(ctx context.Context, db *gorm.DB, planID snowflake.ID) ([]scheduledomain.Slot, error) {
	var items []scheduledomain.Slot
	err := db.WithContext(ctx).
		Where("meal_plan_id = ?", planID).
		Order("day_of_week ASC, meal_type ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, planID snowflake.ID, day time.Weekday, mealType scheduledomain.MealType) (bool, error) {
	res := db.WithContext(ctx).
		Where("meal_plan_id = ? AND day_of_week = ? AND meal_type = ?", planID, int(day), mealType).
		Delete(&scheduledomain.Slot{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Catalog binds slot lookups to a connection or transaction.
type Catalog struct {
	db   *gorm.DB
	repo scheduledomain.Repository
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db, repo: Provide()}
}

func (c *Catalog) Lookup(ctx context.Context, planID snowflake.ID, day time.Weekday, mealType scheduledomain.MealType) (*scheduledomain.Slot, error) {
	return c.repo.FindByKey(ctx, c.db, planID, day, mealType)
}
