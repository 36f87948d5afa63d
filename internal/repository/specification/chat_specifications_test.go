package specification

import (
	"testing"

	"medimate-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func chatQuery(t *testing.T, dialector gorm.Dialector, specs ...Specification) string {
	t.Helper()
	db, err := gorm.Open(dialector, &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		query := tx.Model(&model.ChatSession{})
		for _, spec := range specs {
			query = spec.Apply(query)
		}
		var m model.ChatSession
		return query.First(&m)
	})
}

func TestForUpdate(t *testing.T) {
	id := uuid.New()

	t.Run("postgres locks the chat row", func(t *testing.T) {
		sql := chatQuery(t, postgres.New(postgres.Config{DSN: "host=localhost user=medimate dbname=medimate"}),
			ByID{ID: id}, ForUpdate{})
		assert.Contains(t, sql, "FOR UPDATE")
		assert.Contains(t, sql, id.String())
	})

	t.Run("sqlite drops the lock", func(t *testing.T) {
		sql := chatQuery(t, sqlite.Open("file::memory:"), ByID{ID: id}, ForUpdate{})
		assert.NotContains(t, sql, "FOR UPDATE")
	})

	t.Run("plain reads do not lock", func(t *testing.T) {
		sql := chatQuery(t, postgres.New(postgres.Config{DSN: "host=localhost user=medimate dbname=medimate"}),
			ByID{ID: id})
		assert.NotContains(t, sql, "FOR UPDATE")
	})
}
