// Package testutil provides an isolated SQLite store and seed helpers for
// service tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/votehub/core/internal/config"
	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/pkg/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Epoch is the fixed "now" tests start from.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// DB opens a fresh in-memory database with the full schema.
func DB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := database.Open(config.DriverSQLite, dsn, logger.Silent)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection serializes writers the way row locks do on a server database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Clock returns a fixed clock at Epoch.
func Clock() *clock.Fixed { return clock.NewFixed(Epoch) }

// User seeds a user.
func User(t testing.TB, db *gorm.DB, verified bool) *models.UserModel {
	t.Helper()
	u := &models.UserModel{Name: "user-" + uuid.NewString()[:8], Role: models.RoleUser, IsVerified: verified}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Parent seeds an ACTIVE parent category whose defaults are all YES.
func Parent(t testing.TB, db *gorm.DB, domain models.CategoryDomain, mutate ...func(*models.CategoryModel)) *models.CategoryModel {
	t.Helper()
	c := &models.CategoryModel{
		Name:                  "parent-" + uuid.NewString()[:8],
		IsParent:              true,
		Domain:                domain,
		Status:                models.CategoryActive,
		ClaimableDefault:      models.Yes,
		RequestAllowedDefault: models.Yes,
		AdminCuratedDefault:   models.No,
	}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Child seeds an ACTIVE child of parent that inherits everything.
func Child(t testing.TB, db *gorm.DB, parent *models.CategoryModel, mutate ...func(*models.CategoryModel)) *models.CategoryModel {
	t.Helper()
	c := &models.CategoryModel{
		Name:     "child-" + uuid.NewString()[:8],
		Domain:   parent.Domain,
		Status:   models.CategoryActive,
		ParentID: &parent.ID,
	}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Config seeds an ACTIVE poll config.
func Config(t testing.TB, db *gorm.DB, template models.UITemplate, mutate ...func(*models.PollConfigModel)) *models.PollConfigModel {
	t.Helper()
	c := &models.PollConfigModel{
		Name:        "config",
		Slug:        "config-" + uuid.NewString()[:8],
		Status:      models.PollConfigActive,
		Version:     1,
		UITemplate:  template,
		Rules:       datatypes.NewJSONType(models.PollRules{}),
		Permissions: datatypes.NewJSONType(models.PollPermissions{Visibility: "PUBLIC"}),
	}
	for _, m := range mutate {
		m(c)
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// PublishedPoll seeds a PUBLISHED admin poll open around Epoch.
func PublishedPoll(t testing.TB, db *gorm.DB, categoryID, configID uint64, mutate ...func(*models.PollModel)) *models.PollModel {
	t.Helper()
	start := Epoch.Add(-time.Hour)
	end := Epoch.Add(24 * time.Hour)
	p := &models.PollModel{
		Title:        "poll",
		CategoryID:   categoryID,
		PollConfigID: configID,
		Status:       models.PollPublished,
		StartAt:      &start,
		EndAt:        &end,
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Profile seeds an ACTIVE profile in category.
func Profile(t testing.TB, db *gorm.DB, categoryID uint64, mutate ...func(*models.ProfileModel)) *models.ProfileModel {
	t.Helper()
	name := "profile-" + uuid.NewString()[:8]
	p := &models.ProfileModel{
		CategoryID:        categoryID,
		Name:              name,
		Slug:              name,
		Status:            models.ProfileActive,
		PsiIntegrity:      50,
		PsiCompetence:     50,
		PsiResponsiveness: 50,
		PsiTransparency:   50,
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
