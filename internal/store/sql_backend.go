package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CollectionRow holds one serialized collection in the SQL backend.
type CollectionRow struct {
	Name      string    `gorm:"primaryKey;size:64"`
	Body      []byte    `gorm:"type:longblob;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName pins the table name.
func (CollectionRow) TableName() string {
	return "collections"
}

// SQLBackend keeps a collection as a single row, so a save is still a whole
// collection rewrite. It lets the file store be swapped for a database without
// touching callers.
type SQLBackend struct {
	db   *gorm.DB
	name string
}

// NewSQLBackend creates a backend for the named collection.
func NewSQLBackend(db *gorm.DB, name string) *SQLBackend {
	return &SQLBackend{db: db, name: name}
}

// Load reads the serialized collection.
func (b *SQLBackend) Load(ctx context.Context) ([]byte, error) {
	var row CollectionRow
	err := b.db.WithContext(ctx).Where("name = ?", b.name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", b.name, err)
	}
	return row.Body, nil
}

// Save upserts the serialized collection.
func (b *SQLBackend) Save(ctx context.Context, data []byte) error {
	row := CollectionRow{Name: b.name, Body: data, UpdatedAt: time.Now().UTC()}
	err := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save collection %s: %w", b.name, err)
	}
	return nil
}
