package access

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskscope/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	super models.User
	a1    models.User
	a2    models.User
	u1    models.User
	u2    models.User
	u3    models.User
	u4    models.User
}

func uid(id uint64) *uint64 { return &id }

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	f := &fixture{db: db}
	mk := func(u *models.User, name string, role models.Role, manager *uint64) {
		*u = models.User{Username: name, Email: name + "@example.com", PasswordHash: "x", Role: role, IsStaff: role.IsStaff(), ManagerID: manager}
		require.NoError(t, db.Create(u).Error)
	}
	mk(&f.super, "super", models.RoleSuperAdmin, nil)
	mk(&f.a1, "a1", models.RoleAdmin, nil)
	mk(&f.a2, "a2", models.RoleAdmin, nil)
	mk(&f.u1, "u1", models.RoleUser, uid(f.a1.ID))
	mk(&f.u2, "u2", models.RoleUser, uid(f.a1.ID))
	mk(&f.u3, "u3", models.RoleUser, uid(f.a2.ID))
	mk(&f.u4, "u4", models.RoleUser, nil)

	assignees := []models.User{f.u1, f.u2, f.u3, f.u4}
	creators := []*uint64{nil, uid(f.super.ID), uid(f.a1.ID), uid(f.a2.ID)}
	for _, a := range assignees {
		for _, c := range creators {
			task := models.Task{Title: "t-" + a.Username, AssignedToID: a.ID, CreatedByID: c}
			require.NoError(t, db.Omit("AssignedTo", "CreatedBy").Create(&task).Error)
		}
	}

	return f
}

func (f *fixture) principals() map[string]Principal {
	return map[string]Principal{
		"superadmin":    PrincipalOf(&f.super),
		"admin a1":      PrincipalOf(&f.a1),
		"admin a2":      PrincipalOf(&f.a2),
		"user u1":       PrincipalOf(&f.u1),
		"user u3":       PrincipalOf(&f.u3),
		"user u4":       PrincipalOf(&f.u4),
		"anonymous":     {},
		"unknown role":  {ID: f.a1.ID, Role: "ROOT"},
		"admin no rows": {ID: 9999, Role: models.RoleAdmin},
	}
}

func ids(tasks []models.Task) []uint64 {
	out := make([]uint64, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// The collection filter and the object check must select the same tasks for
// every principal.
func TestTaskScopeAgreesWithCanAccessTask(t *testing.T) {
	f := setupFixture(t)

	var all []models.Task
	require.NoError(t, f.db.Preload("AssignedTo").Find(&all).Error)
	require.Len(t, all, 16)

	for name, p := range f.principals() {
		t.Run(name, func(t *testing.T) {
			var scoped []models.Task
			require.NoError(t, f.db.Model(&models.Task{}).Scopes(TaskScope(p)).Find(&scoped).Error)

			var allowed []models.Task
			for i := range all {
				if CanAccessTask(p, &all[i]) {
					allowed = append(allowed, all[i])
				}
			}

			assert.Equal(t, ids(allowed), ids(scoped))
		})
	}
}

func TestTaskScope_Scenarios(t *testing.T) {
	f := setupFixture(t)

	find := func(p Principal) []models.Task {
		var tasks []models.Task
		require.NoError(t, f.db.Model(&models.Task{}).Scopes(TaskScope(p)).Find(&tasks).Error)
		return tasks
	}

	t.Run("user sees only own assignments", func(t *testing.T) {
		tasks := find(PrincipalOf(&f.u1))
		assert.Len(t, tasks, 4)
		for _, task := range tasks {
			assert.Equal(t, f.u1.ID, task.AssignedToID)
		}
	})

	t.Run("admin sees managed users and own creations", func(t *testing.T) {
		tasks := find(PrincipalOf(&f.a1))
		// 4 for u1, 4 for u2, plus the ones a1 created for u3 and u4
		assert.Len(t, tasks, 10)
		for _, task := range tasks {
			managed := task.AssignedToID == f.u1.ID || task.AssignedToID == f.u2.ID
			created := task.CreatedByID != nil && *task.CreatedByID == f.a1.ID
			assert.True(t, managed || created)
		}
	})

	t.Run("superadmin sees everything", func(t *testing.T) {
		assert.Len(t, find(PrincipalOf(&f.super)), 16)
	})

	t.Run("anonymous sees nothing", func(t *testing.T) {
		assert.Empty(t, find(Principal{}))
	})
}

func TestUserScope(t *testing.T) {
	f := setupFixture(t)

	list := func(p Principal) []string {
		var users []models.User
		require.NoError(t, f.db.Model(&models.User{}).Scopes(UserScope(p)).Order("username").Find(&users).Error)
		names := make([]string, len(users))
		for i, u := range users {
			names[i] = u.Username
		}
		return names
	}

	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, list(PrincipalOf(&f.super)))
	assert.Equal(t, []string{"u1", "u2"}, list(PrincipalOf(&f.a1)))
	assert.Equal(t, []string{"u3"}, list(PrincipalOf(&f.a2)))
	assert.Empty(t, list(PrincipalOf(&f.u1)))
	assert.Empty(t, list(Principal{}))
}

func TestCanAccessTask_RequiresLoadedAssignee(t *testing.T) {
	admin := Principal{ID: 2, Role: models.RoleAdmin}
	task := &models.Task{AssignedToID: 7}

	assert.False(t, CanAccessTask(admin, task), "assignee manager unknown")

	task.AssignedTo = models.User{ID: 7, ManagerID: uid(2)}
	assert.True(t, CanAccessTask(admin, task))

	assert.False(t, CanAccessTask(admin, nil))
}

func TestTaskPredicates(t *testing.T) {
	task := &models.Task{AssignedToID: 7, AssignedTo: models.User{ID: 7, ManagerID: uid(2)}}
	user := Principal{ID: 7, Role: models.RoleUser}
	admin := Principal{ID: 2, Role: models.RoleAdmin}
	otherAdmin := Principal{ID: 3, Role: models.RoleAdmin}

	assert.True(t, CanAccessTask(user, task))
	assert.False(t, CanModifyTaskDetails(user, task))
	assert.False(t, CanDeleteTask(user, task))

	assert.True(t, CanModifyTaskDetails(admin, task))
	assert.True(t, CanDeleteTask(admin, task))
	assert.False(t, CanDeleteTask(otherAdmin, task))
}

func TestGates(t *testing.T) {
	super := Principal{ID: 1, Role: models.RoleSuperAdmin}
	admin := Principal{ID: 2, Role: models.RoleAdmin}
	user := Principal{ID: 3, Role: models.RoleUser}
	anon := Principal{}

	tests := []struct {
		name string
		gate func(Principal) bool
		want map[Principal]bool
	}{
		{"create staff", CanCreateStaff, map[Principal]bool{super: true, admin: false, user: false, anon: false}},
		{"create user", CanCreateUser, map[Principal]bool{super: true, admin: false, user: false, anon: false}},
		{"assign manager", CanAssignManager, map[Principal]bool{super: true, admin: false, user: false, anon: false}},
		{"staff directory", CanViewStaffDirectory, map[Principal]bool{super: true, admin: true, user: false, anon: false}},
		{"create task", CanCreateTask, map[Principal]bool{super: true, admin: true, user: false, anon: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for p, want := range tt.want {
				assert.Equal(t, want, tt.gate(p), "role %q", p.Role)
			}
		})
	}
}

func TestAuthorizeManagerAssignment(t *testing.T) {
	super := Principal{ID: 1, Role: models.RoleSuperAdmin}
	admin := Principal{ID: 2, Role: models.RoleAdmin}

	target := &models.User{ID: 5, Role: models.RoleUser}
	assert.NoError(t, AuthorizeManagerAssignment(super, target))
	assert.ErrorIs(t, AuthorizeManagerAssignment(admin, target), ErrForbidden)
	assert.ErrorIs(t, AuthorizeManagerAssignment(super, &models.User{ID: 6, Role: models.RoleAdmin}), ErrNotAssignable)
}

func TestCanAssignTaskTo(t *testing.T) {
	super := Principal{ID: 1, Role: models.RoleSuperAdmin}
	admin := Principal{ID: 2, Role: models.RoleAdmin}

	managed := &models.User{ID: 5, Role: models.RoleUser, ManagerID: uid(2)}
	unmanaged := &models.User{ID: 6, Role: models.RoleUser}
	staff := &models.User{ID: 7, Role: models.RoleAdmin}

	assert.True(t, CanAssignTaskTo(super, managed))
	assert.True(t, CanAssignTaskTo(super, unmanaged))
	assert.False(t, CanAssignTaskTo(super, staff))
	assert.True(t, CanAssignTaskTo(admin, managed))
	assert.False(t, CanAssignTaskTo(admin, unmanaged))
	assert.False(t, CanAssignTaskTo(Principal{ID: 5, Role: models.RoleUser}, managed))
}

func TestAuthorizeTaskReport(t *testing.T) {
	done := &models.Task{Status: models.TaskStatusCompleted}
	open := &models.Task{Status: models.TaskStatusInProgress}

	assert.NoError(t, AuthorizeTaskReport(Principal{ID: 1, Role: models.RoleSuperAdmin}, done))
	assert.NoError(t, AuthorizeTaskReport(Principal{ID: 2, Role: models.RoleAdmin}, done))
	assert.ErrorIs(t, AuthorizeTaskReport(Principal{ID: 3, Role: models.RoleUser}, done), ErrForbidden)
	assert.ErrorIs(t, AuthorizeTaskReport(Principal{}, done), ErrForbidden)
	assert.ErrorIs(t, AuthorizeTaskReport(Principal{ID: 2, Role: models.RoleAdmin}, open), ErrReportUnavailable)
	// role is checked before status
	assert.ErrorIs(t, AuthorizeTaskReport(Principal{ID: 3, Role: models.RoleUser}, open), ErrForbidden)
}
