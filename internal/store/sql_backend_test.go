package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestSQLBackend_Load(t *testing.T) {
	db, mock := newMockDB(t)
	backend := NewSQLBackend(db, "products")

	rows := sqlmock.NewRows([]string{"name", "body", "updated_at"}).
		AddRow("products", []byte(`[{"id":"prod-1"}]`), time.Now())
	mock.ExpectQuery("SELECT \\* FROM `collections`").WillReturnRows(rows)

	data, err := backend.Load(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"prod-1"}]`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackend_LoadMissing(t *testing.T) {
	db, mock := newMockDB(t)
	backend := NewSQLBackend(db, "users")

	mock.ExpectQuery("SELECT \\* FROM `collections`").
		WillReturnRows(sqlmock.NewRows([]string{"name", "body", "updated_at"}))

	_, err := backend.Load(context.Background())
	assert.ErrorIs(t, err, ErrMissing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackend_LoadError(t *testing.T) {
	db, mock := newMockDB(t)
	backend := NewSQLBackend(db, "users")

	mock.ExpectQuery("SELECT \\* FROM `collections`").WillReturnError(errors.New("connection reset"))

	_, err := backend.Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissing))
	assert.Contains(t, err.Error(), "users")
}

func TestSQLBackend_Save(t *testing.T) {
	db, mock := newMockDB(t)
	backend := NewSQLBackend(db, "products")

	mock.ExpectExec("INSERT INTO `collections`").WillReturnResult(sqlmock.NewResult(0, 1))

	err := backend.Save(context.Background(), []byte(`[]`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackend_SaveError(t *testing.T) {
	db, mock := newMockDB(t)
	backend := NewSQLBackend(db, "products")

	mock.ExpectExec("INSERT INTO `collections`").WillReturnError(errors.New("deadlock"))

	err := backend.Save(context.Background(), []byte(`[]`))
	assert.Error(t, err)
}
