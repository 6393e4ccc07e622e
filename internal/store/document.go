package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "storefront/internal/errors"
	"storefront/internal/metrics"
)

// Document is a single JSON value (such as a map of reference data) kept in a
// Backend under the same lock discipline as a Collection.
type Document[T any] struct {
	name    string
	backend Backend
	locks   *LockSet
	log     *zap.Logger
}

// NewDocument creates a document over backend.
func NewDocument[T any](name string, backend Backend, locks *LockSet, log *zap.Logger) *Document[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Document[T]{name: name, backend: backend, locks: locks, log: log}
}

// Read parses the document. A missing document is a storage error because
// reference data has no meaningful empty value.
func (d *Document[T]) Read(ctx context.Context) (value T, err error) {
	defer d.observe("read", time.Now(), &err)

	release, err := d.locks.RLock(ctx, d.name)
	if err != nil {
		return value, err
	}
	defer release()

	data, err := d.backend.Load(ctx)
	if errors.Is(err, ErrMissing) {
		d.log.Error("document missing", zap.String("document", d.name))
		return value, apperrors.Storage(fmt.Sprintf("%s data missing", d.name), err)
	}
	if err != nil {
		d.log.Error("document read failed", zap.String("document", d.name), zap.Error(err))
		return value, apperrors.Storage(fmt.Sprintf("%s data unavailable", d.name), err)
	}
	if err := json.Unmarshal(data, &value); err != nil {
		d.log.Error("document is corrupt", zap.String("document", d.name), zap.Error(err))
		return value, apperrors.Storage(fmt.Sprintf("%s data is corrupt", d.name), err)
	}
	return value, nil
}

// Write replaces the document.
func (d *Document[T]) Write(ctx context.Context, value T) (err error) {
	defer d.observe("write", time.Now(), &err)

	release, err := d.locks.Lock(ctx, d.name)
	if err != nil {
		return err
	}
	defer release()

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return apperrors.Storage(fmt.Sprintf("encode %s data", d.name), err)
	}
	if err := d.backend.Save(ctx, data); err != nil {
		return apperrors.Storage(fmt.Sprintf("%s data write failed", d.name), err)
	}
	return nil
}

// Exists reports whether the document has been written.
func (d *Document[T]) Exists(ctx context.Context) (bool, error) {
	release, err := d.locks.RLock(ctx, d.name)
	if err != nil {
		return false, err
	}
	defer release()

	_, err = d.backend.Load(ctx)
	if errors.Is(err, ErrMissing) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Storage(fmt.Sprintf("%s data unavailable", d.name), err)
	}
	return true, nil
}

func (d *Document[T]) observe(op string, start time.Time, err *error) {
	metrics.ObserveStoreOp(d.name, op, start, *err)
}
