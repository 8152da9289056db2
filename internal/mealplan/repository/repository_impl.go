package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() mealplandomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plan *mealplandomain.MealPlan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, plan *mealplandomain.MealPlan) error {
	return db.WithContext(ctx).Save(plan).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*mealplandomain.MealPlan, error) {
	var items []mealplandomain.MealPlan
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

func (r *repo) ListByKitchen(ctx context.Context, db *gorm.DB, kitchenID snowflake.ID) ([]mealplandomain.MealPlan, error) {
	var items []mealplandomain.MealPlan
	err := db.WithContext(ctx).
		Where("kitchen_id = ?", kitchenID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// PlanSource binds plan lookups to a connection or transaction.
type PlanSource struct {
	db   *gorm.DB
	repo mealplandomain.Repository
}

func NewPlanSource(db *gorm.DB) *PlanSource {
	return &PlanSource{db: db, repo: Provide()}
}

func (p *PlanSource) FindPlan(ctx context.Context, id snowflake.ID) (*mealplandomain.MealPlan, error) {
	return p.repo.FindByID(ctx, p.db, id)
}
