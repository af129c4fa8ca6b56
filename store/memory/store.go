// Package memory is an in-process store used for development and tests.
package memory

import (
	"context"
	"sync"

	"civicbridge-be/models"
	"civicbridge-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

// op mutates the store under its write lock and returns an undo for rollback.
type op func(s *Store) (undo func(), err error)

// txn buffers writes until commit. Pending issues are visible to reads made with the tx context.
type txn struct {
	ops    []op
	issues map[primitive.ObjectID]models.Issue
}

// Store keeps everything in maps guarded by a single RWMutex. Writes issued inside
// WithTx are buffered and applied in one critical section at commit.
type Store struct {
	mu       sync.RWMutex
	issues   map[primitive.ObjectID]models.Issue
	timeline map[primitive.ObjectID][]models.TimelineEntry
	users    map[primitive.ObjectID]models.User
	emails   map[string]primitive.ObjectID
}

func New() *Store {
	return &Store{
		issues:   make(map[primitive.ObjectID]models.Issue),
		timeline: make(map[primitive.ObjectID][]models.TimelineEntry),
		users:    make(map[primitive.ObjectID]models.User),
		emails:   make(map[string]primitive.ObjectID),
	}
}

func (s *Store) Issues() store.IssueRepository       { return &issueRepo{s: s} }
func (s *Store) Timeline() store.TimelineRepository { return &timelineRepo{s: s} }
func (s *Store) Users() store.UserRepository         { return &userRepo{s: s} }

func (s *Store) Migrate(ctx context.Context) error { return nil }
func (s *Store) Close(ctx context.Context) error   { return nil }

// WithTx buffers every write made through the returned context and applies them
// atomically once fn returns nil. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &txn{issues: make(map[primitive.ObjectID]models.Issue)}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	undos := make([]func(), 0, len(tx.ops))
	for _, o := range tx.ops {
		undo, err := o(s)
		if err != nil {
			for i := len(undos) - 1; i >= 0; i-- {
				undos[i]()
			}
			return err
		}
		undos = append(undos, undo)
	}
	return nil
}

// apply runs o now, or queues it when ctx carries a transaction.
func (s *Store) apply(ctx context.Context, o op) error {
	if tx := txFrom(ctx); tx != nil {
		tx.ops = append(tx.ops, o)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := o(s)
	return err
}

func txFrom(ctx context.Context) *txn {
	tx, _ := ctx.Value(txKey{}).(*txn)
	return tx
}

var _ store.Store = (*Store)(nil)
