package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Unique is a value that must not already exist in Column.
type Unique struct {
	Field  string
	Column string
	Value  any
}

// Filter restricts a listing to rows where Column equals Value.
type Filter struct {
	Column string
	Value  any
}

// ListOptions pages and filters a listing. A zero Limit returns every row.
type ListOptions struct {
	Filters []Filter
	Offset  int
	Limit   int
}

// Repository runs the storage operations for one model type over an
// injected gorm handle.
type Repository[T any] struct {
	db *gorm.DB
}

func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

func (r *Repository[T]) scoped(ctx context.Context, filters []Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(new(T))
	for _, f := range filters {
		q = q.Where(clause.Eq{Column: clause.Column{Name: f.Column}, Value: f.Value})
	}
	return q
}

// List returns one page of rows ordered by id, plus the unpaged total.
func (r *Repository[T]) List(ctx context.Context, opts ListOptions) ([]T, int64, error) {
	var total int64
	if err := r.scoped(ctx, opts.Filters).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count rows: %w", err)
	}

	q := r.scoped(ctx, opts.Filters).Order("id")
	if opts.Limit > 0 {
		q = q.Offset(opts.Offset).Limit(opts.Limit)
	}

	items := []T{}
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list rows: %w", err)
	}
	return items, total, nil
}

func (r *Repository[T]) Get(ctx context.Context, id uint) (*T, error) {
	rec := new(T)
	if err := r.db.WithContext(ctx).First(rec, id).Error; err != nil {
		return nil, TranslateError(err)
	}
	return rec, nil
}

func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// Create inserts rec after checking uniques; the id is assigned by storage.
func (r *Repository[T]) Create(ctx context.Context, rec *T, uniques []Unique) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique[T](tx, 0, uniques); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(rec).Error
	})
	return TranslateError(err)
}

// Update loads the row, applies mutate, and writes back only columns.
func (r *Repository[T]) Update(ctx context.Context, id uint, columns []string, uniques []Unique, mutate func(*T) error) (*T, error) {
	rec := new(T)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(rec, id).Error; err != nil {
			return err
		}
		if err := checkUnique[T](tx, id, uniques); err != nil {
			return err
		}
		if err := mutate(rec); err != nil {
			return err
		}
		if len(columns) == 0 {
			return nil
		}
		return tx.Model(rec).Select(columns).Updates(rec).Error
	})
	if err != nil {
		return nil, TranslateError(err)
	}
	return rec, nil
}

func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return TranslateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkedIDs returns the ids of rows whose foreignKey column points at owner.
func (r *Repository[T]) LinkedIDs(ctx context.Context, foreignKey string, owner uint) ([]uint, error) {
	ids := []uint{}
	err := r.scoped(ctx, []Filter{{Column: foreignKey, Value: owner}}).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load linkage: %w", err)
	}
	return ids, nil
}

// ReplaceLinks points exactly ids at owner through foreignKey, clearing it on
// rows that are no longer listed. Unknown ids fail with a *MissingError and
// change nothing.
func (r *Repository[T]) ReplaceLinks(ctx context.Context, foreignKey string, owner uint, ids []uint) error {
	ids = dedupe(ids)
	column := clause.Column{Name: foreignKey}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(ids) > 0 {
			var found []uint
			if err := tx.Model(new(T)).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
				return err
			}
			if missing := difference(ids, found); len(missing) > 0 {
				return &MissingError{IDs: missing}
			}
		}

		unlink := tx.Model(new(T)).Where(clause.Eq{Column: column, Value: owner})
		if len(ids) > 0 {
			unlink = unlink.Where("id NOT IN ?", ids)
		}
		if err := unlink.Update(foreignKey, gorm.Expr("NULL")).Error; err != nil {
			return err
		}

		if len(ids) == 0 {
			return nil
		}
		return tx.Model(new(T)).Where("id IN ?", ids).Update(foreignKey, owner).Error
	})
	return TranslateError(err)
}

func checkUnique[T any](tx *gorm.DB, self uint, uniques []Unique) error {
	for _, u := range uniques {
		q := tx.Model(new(T)).Where(clause.Eq{Column: clause.Column{Name: u.Column}, Value: u.Value})
		if self != 0 {
			q = q.Where("id <> ?", self)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Field: u.Field, Value: u.Value}
		}
	}
	return nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func difference(want, have []uint) []uint {
	present := make(map[uint]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	var missing []uint
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
