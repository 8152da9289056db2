package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, slot *Slot) error
	FindByKey(ctx context.Context, db *gorm.DB, planID snowflake.ID, day time.Weekday, mealType MealType) (*Slot, error)
	ListByPlan(ctx context.Context, db *gorm.DB, planID snowflake.ID) ([]Slot, error)
	Delete(ctx context.Context, db *gorm.DB, planID snowflake.ID, day time.Weekday, mealType MealType) (bool, error)
}
