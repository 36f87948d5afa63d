package implementation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// normalizeWriteError makes every driver's unique violation match
// gorm.ErrDuplicatedKey with errors.Is.
func normalizeWriteError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", gorm.ErrDuplicatedKey, err)
	}
	return err
}
