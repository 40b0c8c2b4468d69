package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repositories bundles the repositories bound to one database handle, which is
// either the root connection or an open transaction.
type Repositories struct {
	Users        UserRepository
	Courses      CourseRepository
	Resources    ResourceRepository
	Interactions InteractionRepository
	History      HistoryRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repositories() Repositories
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore constructs a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Repositories() Repositories {
	return newRepositories(s.db)
}

func (s *gormStore) WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:        NewUserRepository(db),
		Courses:      NewCourseRepository(db),
		Resources:    NewResourceRepository(db),
		Interactions: NewInteractionRepository(db),
		History:      NewHistoryRepository(db),
	}
}

// forUpdate takes a row lock on dialects that support it; SQLite ignores the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
