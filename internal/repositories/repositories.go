// Package repositories translates access filters into gorm queries.
package repositories

import (
	"errors"
	"math"

	"task-platform/backend/internal/access"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Page is one page of a listing, newest first.
type Page[T any] struct {
	Items       []T   `json:"data"`
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	LastPage    int   `json:"last_page"`
}

func newPage[T any](items []T, total int64, page int) Page[T] {
	if items == nil {
		items = []T{}
	}
	lastPage := int(math.Ceil(float64(total) / float64(access.PageSize)))
	if lastPage < 1 {
		lastPage = 1
	}
	return Page[T]{
		Items:       items,
		Total:       total,
		CurrentPage: page,
		PerPage:     access.PageSize,
		LastPage:    lastPage,
	}
}

func paginate(page int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		return db.Limit(access.PageSize).Offset((page - 1) * access.PageSize)
	}
}

func newestFirst(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(table + ".created_at DESC").Order(table + ".id DESC")
	}
}

func likePattern(term string) string {
	return "%" + term + "%"
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
