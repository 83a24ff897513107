package main

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskscope/internal/database"
	"github.com/yukikurage/taskscope/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))

	prev := openDB
	openDB = func() (*gorm.DB, error) { return db, nil }
	t.Cleanup(func() {
		openDB = prev
	})

	return db
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateSuperAdmin(t *testing.T) {
	db := setupTestDB(t)

	_, err := run(t, "create-superadmin", "--username", "root", "--email", "Root@Example.com", "--password", "Str0ng!pass")
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("username = ?", "root").First(&user).Error)
	assert.Equal(t, models.RoleSuperAdmin, user.Role)
	assert.True(t, user.IsStaff)
	assert.Equal(t, "root@example.com", user.Email)
}

func TestCreateSuperAdmin_WeakPassword(t *testing.T) {
	db := setupTestDB(t)

	_, err := run(t, "create-superadmin", "--username", "root", "--email", "root@example.com", "--password", "weak")
	require.Error(t, err)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestAssignManager(t *testing.T) {
	db := setupTestDB(t)

	admin := models.User{Username: "admin", Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin, IsStaff: true}
	user := models.User{Username: "user", Email: "user@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&user).Error)

	_, err := run(t, "assign-manager", "--user", itoa(user.ID), "--manager", itoa(admin.ID))
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	require.NotNil(t, reloaded.ManagerID)
	assert.Equal(t, admin.ID, *reloaded.ManagerID)

	_, err = run(t, "assign-manager", "--user", itoa(user.ID), "--manager", "0")
	require.NoError(t, err)
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Nil(t, reloaded.ManagerID)
}

func TestAssignManager_RejectsNonAdminManager(t *testing.T) {
	db := setupTestDB(t)

	a := models.User{Username: "a", Email: "a@example.com", PasswordHash: "x", Role: models.RoleUser}
	b := models.User{Username: "b", Email: "b@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	_, err := run(t, "assign-manager", "--user", itoa(a.ID), "--manager", itoa(b.ID))
	assert.Error(t, err)
}

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}
