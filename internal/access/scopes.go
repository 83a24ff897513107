package access

import (
	"github.com/yukikurage/taskscope/internal/models"
	"gorm.io/gorm"
)

// TaskScope restricts a tasks query to the rows p may see. It selects exactly
// the tasks for which CanAccessTask allows.
func TaskScope(p Principal) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !p.Authenticated() {
			return db.Where("1 = 0")
		}

		switch p.Role {
		case models.RoleSuperAdmin:
			return db
		case models.RoleAdmin:
			managed := db.Session(&gorm.Session{NewDB: true}).
				Model(&models.User{}).
				Select("id").
				Where("manager_id = ?", p.ID)
			return db.Where("(tasks.assigned_to_id IN (?) OR tasks.created_by_id = ?)", managed, p.ID)
		case models.RoleUser:
			return db.Where("tasks.assigned_to_id = ?", p.ID)
		}
		return db.Where("1 = 0")
	}
}

// UserScope restricts a users query to the accounts p may list.
func UserScope(p Principal) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case p.is(models.RoleSuperAdmin):
			return db.Where("users.role = ?", models.RoleUser)
		case p.is(models.RoleAdmin):
			return db.Where("users.role = ? AND users.manager_id = ?", models.RoleUser, p.ID)
		}
		return db.Where("1 = 0")
	}
}
