package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "storefront/internal/errors"
	"storefront/internal/metrics"
)

// Record is implemented by pointers to entities kept in a Collection.
type Record[T any] interface {
	*T
	RecordID() string
	Assign(id string, createdAt time.Time)
}

// Patch is a set of top-level JSON fields to shallow-merge into an entity.
type Patch map[string]json.RawMessage

// Collection is an ordered list of entities of one kind. Every mutation reads
// the whole collection and rewrites it, so operations are O(n); that ceiling is
// accepted for a low-write catalog and insertion order is always preserved.
type Collection[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, bool, error)
	Insert(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, patch Patch) (T, bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	// Mutate runs fn under the collection's exclusive lock. fn reports whether
	// it changed anything; the collection is rewritten only if it did.
	Mutate(ctx context.Context, fn func(items []T) ([]T, bool, error)) error
}

// Options configures a JSONCollection.
type Options[T any] struct {
	// Name identifies the collection and its lock.
	Name string
	// IDPrefix is prepended to generated ids.
	IDPrefix string
	// Validate runs on inserted and merged entities before anything is written.
	Validate func(*T) error
	// Immutable lists JSON fields a patch may not change. Defaults to id and createdAt.
	Immutable []string
	Clock     func() time.Time
	NewID     func() string
	Logger    *zap.Logger
}

// JSONCollection implements Collection over a Backend holding a JSON array.
type JSONCollection[T any, P Record[T]] struct {
	name      string
	backend   Backend
	locks     *LockSet
	idPrefix  string
	validate  func(*T) error
	immutable map[string]bool
	now       func() time.Time
	newID     func() string
	log       *zap.Logger
}

// NewCollection creates a collection over backend guarded by locks.
func NewCollection[T any, P Record[T]](backend Backend, locks *LockSet, opts Options[T]) *JSONCollection[T, P] {
	c := &JSONCollection[T, P]{
		name:      opts.Name,
		backend:   backend,
		locks:     locks,
		idPrefix:  opts.IDPrefix,
		validate:  opts.Validate,
		immutable: map[string]bool{"id": true, "createdAt": true},
		now:       opts.Clock,
		newID:     opts.NewID,
		log:       opts.Logger,
	}
	if len(opts.Immutable) > 0 {
		c.immutable = make(map[string]bool, len(opts.Immutable))
		for _, f := range opts.Immutable {
			c.immutable[f] = true
		}
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.newID == nil {
		c.newID = func() string { return c.idPrefix + uuid.NewString() }
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Name returns the collection name.
func (c *JSONCollection[T, P]) Name() string {
	return c.name
}

// Ensure creates an empty collection if none exists and checks that an
// existing one parses.
func (c *JSONCollection[T, P]) Ensure(ctx context.Context) error {
	release, err := c.locks.Lock(ctx, c.name)
	if err != nil {
		return err
	}
	defer release()

	_, err = c.backend.Load(ctx)
	if errors.Is(err, ErrMissing) {
		c.log.Info("creating empty collection", zap.String("collection", c.name))
		return c.save(ctx, []T{})
	}
	if err != nil {
		return apperrors.Storage(fmt.Sprintf("%s collection unavailable", c.name), err)
	}
	_, err = c.load(ctx)
	return err
}

// List returns every entity in stored order.
func (c *JSONCollection[T, P]) List(ctx context.Context) (items []T, err error) {
	defer c.observe("list", time.Now(), &err)

	release, err := c.locks.RLock(ctx, c.name)
	if err != nil {
		return nil, err
	}
	defer release()

	return c.load(ctx)
}

// Get returns the entity with id.
func (c *JSONCollection[T, P]) Get(ctx context.Context, id string) (item T, found bool, err error) {
	defer c.observe("get", time.Now(), &err)

	release, err := c.locks.RLock(ctx, c.name)
	if err != nil {
		return item, false, err
	}
	defer release()

	items, err := c.load(ctx)
	if err != nil {
		return item, false, err
	}
	if i := c.indexOf(items, id); i >= 0 {
		return items[i], true, nil
	}
	return item, false, nil
}

// Insert assigns an id (when empty) and a creation time, then appends.
func (c *JSONCollection[T, P]) Insert(ctx context.Context, item T) (created T, err error) {
	defer c.observe("insert", time.Now(), &err)

	err = c.Mutate(ctx, func(items []T) ([]T, bool, error) {
		rec := P(&item)
		id := rec.RecordID()
		if id == "" {
			id = c.newID()
		} else if c.indexOf(items, id) >= 0 {
			return nil, false, apperrors.Conflict(fmt.Sprintf("%s %s already exists", c.name, id))
		}
		rec.Assign(id, c.now())
		if err := c.check(&item); err != nil {
			return nil, false, err
		}
		created = item
		return append(items, item), true, nil
	})
	return created, err
}

// Update shallow-merges patch into the entity with id.
func (c *JSONCollection[T, P]) Update(ctx context.Context, id string, patch Patch) (updated T, found bool, err error) {
	defer c.observe("update", time.Now(), &err)

	err = c.Mutate(ctx, func(items []T) ([]T, bool, error) {
		i := c.indexOf(items, id)
		if i < 0 {
			return items, false, nil
		}
		merged, err := c.merge(items[i], patch)
		if err != nil {
			return nil, false, apperrors.Validation("Invalid payload")
		}
		if err := c.check(&merged); err != nil {
			return nil, false, err
		}
		items[i] = merged
		updated, found = merged, true
		return items, true, nil
	})
	return updated, found, err
}

// Remove deletes the entity with id and reports whether it existed.
func (c *JSONCollection[T, P]) Remove(ctx context.Context, id string) (removed bool, err error) {
	defer c.observe("remove", time.Now(), &err)

	err = c.Mutate(ctx, func(items []T) ([]T, bool, error) {
		kept := make([]T, 0, len(items))
		for _, item := range items {
			if P(&item).RecordID() == id {
				removed = true
				continue
			}
			kept = append(kept, item)
		}
		return kept, removed, nil
	})
	return removed, err
}

// Mutate implements Collection.
func (c *JSONCollection[T, P]) Mutate(ctx context.Context, fn func(items []T) ([]T, bool, error)) error {
	release, err := c.locks.Lock(ctx, c.name)
	if err != nil {
		return err
	}
	defer release()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	next, changed, err := fn(items)
	if err != nil || !changed {
		return err
	}
	return c.save(ctx, next)
}

func (c *JSONCollection[T, P]) load(ctx context.Context) ([]T, error) {
	data, err := c.backend.Load(ctx)
	if errors.Is(err, ErrMissing) {
		return []T{}, nil
	}
	if err != nil {
		c.log.Error("collection read failed", zap.String("collection", c.name), zap.Error(err))
		return nil, apperrors.Storage(fmt.Sprintf("%s collection unavailable", c.name), err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		c.log.Error("collection is corrupt", zap.String("collection", c.name), zap.Error(err))
		return nil, apperrors.Storage(fmt.Sprintf("%s collection is corrupt", c.name), err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *JSONCollection[T, P]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return apperrors.Storage(fmt.Sprintf("encode %s collection", c.name), err)
	}
	if err := c.backend.Save(ctx, data); err != nil {
		c.log.Error("collection write failed", zap.String("collection", c.name), zap.Error(err))
		return apperrors.Storage(fmt.Sprintf("%s collection write failed", c.name), err)
	}
	return nil
}

func (c *JSONCollection[T, P]) indexOf(items []T, id string) int {
	for i := range items {
		if P(&items[i]).RecordID() == id {
			return i
		}
	}
	return -1
}

func (c *JSONCollection[T, P]) observe(op string, start time.Time, err *error) {
	metrics.ObserveStoreOp(c.name, op, start, *err)
}

func (c *JSONCollection[T, P]) check(item *T) error {
	if c.validate == nil {
		return nil
	}
	return c.validate(item)
}

// merge overlays the patch's top-level fields on the JSON form of current.
// Fields the patch does not mention keep their values.
func (c *JSONCollection[T, P]) merge(current T, patch Patch) (T, error) {
	var out T

	base, err := json.Marshal(current)
	if err != nil {
		return out, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return out, err
	}
	for k, v := range patch {
		if c.immutable[k] {
			continue
		}
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, err
	}
	return out, nil
}
