package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *MealPlan) error
	Update(ctx context.Context, db *gorm.DB, plan *MealPlan) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MealPlan, error)
	ListByKitchen(ctx context.Context, db *gorm.DB, kitchenID snowflake.ID) ([]MealPlan, error)
}
