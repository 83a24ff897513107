package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

type compositeIndex struct {
	table   string
	name    string
	columns string
}

// compositeIndexes back the hot lookups that single-column tags don't cover.
var compositeIndexes = []compositeIndex{
	// Passcode verification: a user's codes, newest first
	{"one_time_passcodes", "idx_passcodes_user_code_created", "user_id, code, created_at"},

	// Admin task scoping walks users by manager and role
	{"users", "idx_users_role_manager", "role, manager_id"},

	// Task listing with status filter inside a scope
	{"tasks", "idx_tasks_assigned_status", "assigned_to_id, status"},
	{"tasks", "idx_tasks_creator_status", "created_by_id, status"},
}

// AddIndexes adds composite indexes that aren't expressed in model tags.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			log.Printf("Index %s already exists, skipping", idx.name)
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s(%s)", idx.name, idx.table, idx.columns)
	}

	return nil
}
