package migration

import (
	"errors"
	"fmt"

	mealplandomain "github.com/smallbiznis/tiffin/internal/mealplan/domain"
	orderdomain "github.com/smallbiznis/tiffin/internal/order/domain"
	scheduledomain "github.com/smallbiznis/tiffin/internal/schedule/domain"
	trialdomain "github.com/smallbiznis/tiffin/internal/trial/domain"
	"gorm.io/gorm"
)

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&mealplandomain.MealPlan{},
		&scheduledomain.Slot{},
		&trialdomain.Usage{},
		&orderdomain.Order{},
		&orderdomain.Guard{},
	}
}

// RunMigrations creates missing tables, columns and indexes so a fresh
// database is usable out of the box for local and self-hosted environments.
// Existing columns are never altered; type changes need an explicit migration.
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	for _, model := range Models() {
		if err := migrateModel(db, model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

func migrateModel(db *gorm.DB, model any) error {
	migrator := db.Migrator()
	if !migrator.HasTable(model) {
		return migrator.CreateTable(model)
	}

	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return err
	}

	for _, name := range stmt.Schema.DBNames {
		if field := stmt.Schema.FieldsByDBName[name]; field != nil && field.IgnoreMigration {
			continue
		}
		if migrator.HasColumn(model, name) {
			continue
		}
		if err := migrator.AddColumn(model, name); err != nil {
			return fmt.Errorf("add column %s: %w", name, err)
		}
	}

	for _, idx := range stmt.Schema.ParseIndexes() {
		if migrator.HasIndex(model, idx.Name) {
			continue
		}
		if err := migrator.CreateIndex(model, idx.Name); err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}
