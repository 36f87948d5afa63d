package testutil

import (
	"fmt"
	"testing"

	"medimate-be/internal/model"
	"medimate-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every table
// migrated. One connection keeps transactions and plain reads serialized.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func NewStore(t testing.TB) (*gorm.DB, unitofwork.RepositoryFactory) {
	db := NewDB(t)
	return db, unitofwork.NewRepositoryFactory(db)
}

// FailCreatesOn makes every insert into table fail with err until the
// returned func is called.
func FailCreatesOn(t testing.TB, db *gorm.DB, table string, err error) func() {
	t.Helper()
	name := "testutil:fail_create_" + table
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	}))
	restore := func() { _ = db.Callback().Create().Remove(name) }
	t.Cleanup(restore)
	return restore
}

// FailUpdatesOn is FailCreatesOn for updates.
func FailUpdatesOn(t testing.TB, db *gorm.DB, table string, err error) func() {
	t.Helper()
	name := "testutil:fail_update_" + table
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	}))
	restore := func() { _ = db.Callback().Update().Remove(name) }
	t.Cleanup(restore)
	return restore
}
