// Package store defines the persistence contracts the issue workflow depends on.
// Implementations live in the memory, mongostore and sqlstore subpackages.
package store

import (
	"context"
	"errors"

	"civicbridge-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by IssueRepository.Update when the stored version moved on.
	ErrConflict = errors.New("version conflict")

	// ErrDuplicate is returned when a unique key (user email) already exists.
	ErrDuplicate = errors.New("duplicate key")
)

// Store groups the repositories and the transaction boundary.
type Store interface {
	Issues() IssueRepository
	Timeline() TimelineRepository
	Users() UserRepository

	// WithTx runs fn so that every write made through ctx inside fn is applied
	// together or not at all.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Migrate creates tables or indexes. It is safe to call repeatedly.
	Migrate(ctx context.Context) error

	Close(ctx context.Context) error
}

// IssueFilter narrows List. Zero values mean "any".
type IssueFilter struct {
	Category  models.IssueCategory
	Status    models.IssueStatus
	CreatedBy primitive.ObjectID
	// HasLocation keeps only issues with coordinates.
	HasLocation bool
	Limit       int
}

type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)

	// Update replaces the stored issue if its version still equals issue.Version,
	// then bumps issue.Version. Returns ErrConflict otherwise.
	Update(ctx context.Context, issue *models.Issue) error

	// List returns issues newest first.
	List(ctx context.Context, filter IssueFilter) ([]models.Issue, error)
}

type TimelineRepository interface {
	Create(ctx context.Context, entry *models.TimelineEntry) error

	// ListByIssue returns entries in creation order.
	ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.TimelineEntry, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
}

// Matches reports whether issue passes the filter. Stores that filter in memory share it.
func (f IssueFilter) Matches(issue *models.Issue) bool {
	if f.Category != "" && issue.Category != f.Category {
		return false
	}
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if !f.CreatedBy.IsZero() && issue.CreatedBy != f.CreatedBy {
		return false
	}
	if f.HasLocation && issue.Location == nil {
		return false
	}
	return true
}
