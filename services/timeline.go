package services

import (
	"context"
	"time"

	"civicbridge-be/models"
	"civicbridge-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TimelineRecorder appends the immutable status history of issues.
// It does not check transition legality; callers invoke it inside the same
// store transaction as the status change it records.
type TimelineRecorder struct {
	repo   store.TimelineRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewTimelineRecorder(repo store.TimelineRepository, logger *zap.Logger) *TimelineRecorder {
	return &TimelineRecorder{
		repo:   repo,
		logger: logger,
		now:    now,
	}
}

// Record appends one entry stamped with the current time.
func (r *TimelineRecorder) Record(ctx context.Context, issueID primitive.ObjectID, status models.IssueStatus, by models.ActorKind) (models.TimelineEntry, error) {
	entry := models.TimelineEntry{
		ID:        primitive.NewObjectID(),
		IssueID:   issueID,
		Status:    status,
		UpdatedBy: by,
		CreatedAt: r.now(),
	}
	if err := r.repo.Create(ctx, &entry); err != nil {
		r.logger.Error("Failed to record timeline entry",
			zap.String("issue_id", issueID.Hex()),
			zap.String("status", string(status)),
			zap.Error(err))
		return models.TimelineEntry{}, &StoreError{Op: "record timeline entry", Err: err}
	}
	return entry, nil
}

// ListByIssue returns the entries of one issue oldest first.
func (r *TimelineRecorder) ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.TimelineEntry, error) {
	entries, err := r.repo.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, &StoreError{Op: "list timeline", Err: err}
	}
	return entries, nil
}

// now truncates to milliseconds, the precision MongoDB keeps for dates.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
