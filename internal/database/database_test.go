package database_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/votehub/core/internal/database"
	"github.com/votehub/core/internal/models"
	"github.com/votehub/core/internal/testutil"
)

func TestIsDuplicateKeyOnSQLite(t *testing.T) {
	db := testutil.DB(t)
	first := &models.PsiVoteModel{ProfileID: 1, UserID: 2, Weight: 1}
	require.NoError(t, db.Create(first).Error)

	err := db.Create(&models.PsiVoteModel{ProfileID: 1, UserID: 2, Weight: 0.5}).Error
	require.Error(t, err)
	assert.True(t, database.IsDuplicateKey(err))
}

func TestIsDuplicateKeyDrivers(t *testing.T) {
	assert.False(t, database.IsDuplicateKey(nil))
	assert.False(t, database.IsDuplicateKey(errors.New("connection reset")))
	assert.True(t, database.IsDuplicateKey(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.False(t, database.IsDuplicateKey(&mysql.MySQLError{Number: 1452}))
	assert.True(t, database.IsDuplicateKey(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := database.Open("oracle", "x", 0)
	assert.Error(t, err)
}
