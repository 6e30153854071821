package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestOperation(t *testing.T) {
	assert.Equal(t, "select", operation("\n\t\tSELECT user_id FROM user_keys"))
	assert.Equal(t, "insert", operation("INSERT INTO tokens VALUES ($1)"))
	assert.Equal(t, "unknown", operation("   "))
}

func TestErrorClassifiers(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, isDuplicateKeyError(dup))
	assert.False(t, isDuplicateKeyError(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isDuplicateKeyError(errors.New("boom")))

	assert.True(t, isNotFoundError(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, isNotFoundError(errors.New("boom")))
}
