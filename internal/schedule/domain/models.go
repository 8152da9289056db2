// Package domain contains the weekly schedule of a meal plan: one slot per day and meal type.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
)

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
)

func ParseMealType(value string) (MealType, error) {
	switch MealType(strings.ToLower(strings.TrimSpace(value))) {
	case Breakfast:
		return Breakfast, nil
	case Lunch:
		return Lunch, nil
	case Dinner:
		return Dinner, nil
	default:
		return "", ErrInvalidMealType
	}
}

// Slot is the availability of one meal type on one weekday of a plan.
// (MealPlanID, DayOfWeek, MealType) is unique.
type Slot struct {
	ID                  snowflake.ID     `json:"id" gorm:"primaryKey"`
	MealPlanID          snowflake.ID     `json:"meal_plan_id" gorm:"not null;uniqueIndex:ux_schedule_slots_key,priority:1"`
	DayOfWeek           int              `json:"day_of_week" gorm:"not null;uniqueIndex:ux_schedule_slots_key,priority:2"`
	MealType            MealType         `json:"meal_type" gorm:"type:varchar(16);not null;uniqueIndex:ux_schedule_slots_key,priority:3"`
	IsAvailable         bool             `json:"is_available" gorm:"not null"`
	PriceOverride       *decimal.Decimal `json:"price_override,omitempty" gorm:"type:numeric(12,2)"`
	ServiceStartTime    *string          `json:"service_start_time,omitempty" gorm:"type:text"`
	ServiceEndTime      *string          `json:"service_end_time,omitempty" gorm:"type:text"`
	OrderDeadline       string           `json:"order_deadline" gorm:"type:text;not null"`
	DeliveryWindowStart *string          `json:"delivery_window_start,omitempty" gorm:"type:text"`
	DeliveryWindowEnd   *string          `json:"delivery_window_end,omitempty" gorm:"type:text"`
	MaxOrders           *int             `json:"max_orders,omitempty"`
	CreatedAt           time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt           time.Time        `json:"updated_at" gorm:"not null"`
}

func (Slot) TableName() string { return "schedule_slots" }

// Deadline is the instant ordering closes for the slot on date, in loc.
func (s Slot) Deadline(date civil.Date, loc *time.Location) (time.Time, error) {
	at, err := ParseClockTime(s.OrderDeadline)
	if err != nil {
		return time.Time{}, fmt.Errorf("slot %s order deadline: %w", s.ID, err)
	}
	return at.On(date, loc), nil
}

const clockLayout = "15:04"

// ClockTime is a 24h time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime accepts strictly "HH:MM".
func ParseClockTime(value string) (ClockTime, error) {
	v := strings.TrimSpace(value)
	// time.Parse takes a single hour digit, so the width is checked first.
	if len(v) != len(clockLayout) {
		return ClockTime{}, ErrInvalidTimeOfDay
	}
	t, err := time.Parse(clockLayout, v)
	if err != nil {
		return ClockTime{}, ErrInvalidTimeOfDay
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) On(date civil.Date, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year, date.Month, date.Day, c.Hour, c.Minute, 0, 0, loc)
}

func (c ClockTime) Before(other ClockTime) bool {
	return c.Hour*60+c.Minute < other.Hour*60+other.Minute
}

// Weekday of a calendar date; 0 is Sunday.
func Weekday(date civil.Date) time.Weekday {
	return date.In(time.UTC).Weekday()
}

