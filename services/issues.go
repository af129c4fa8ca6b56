// Package services holds the issue workflow engine, the timeline recorder and
// the user accounts service. HTTP handlers call into it with an authenticated
// models.Actor; it never looks at tokens or requests.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"civicbridge-be/models"
	"civicbridge-be/store"
	"civicbridge-be/telemetry"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CreateIssueInput carries the resident-supplied fields of a new issue.
type CreateIssueInput struct {
	Title       string               `validate:"required,max=200"`
	Description string               `validate:"required,max=2000"`
	Category    models.IssueCategory `validate:"required,issue_category"`
	Location    *models.GeoPoint     `validate:"omitempty"`
	Address     *string
	ImageURL    *string
}

// IssueService is the issue workflow engine. Every mutation runs under a per-issue
// lock and inside one store transaction together with its timeline entry.
type IssueService struct {
	store    store.Store
	timeline *TimelineRecorder
	locks    *keyedMutex
	logger   *zap.Logger
	now      func() time.Time

	tracer      trace.Tracer
	transitions metric.Int64Counter
	upvotes     metric.Int64Counter
}

func NewIssueService(st store.Store, timeline *TimelineRecorder, logger *zap.Logger) *IssueService {
	meter := telemetry.Meter("services")
	transitions, err := meter.Int64Counter("civicbridge.issue.transitions",
		metric.WithDescription("Issue status changes recorded on the timeline"))
	if err != nil {
		logger.Warn("Failed to create transitions counter", zap.Error(err))
	}
	upvotes, err := meter.Int64Counter("civicbridge.issue.upvotes",
		metric.WithDescription("Accepted issue upvotes"))
	if err != nil {
		logger.Warn("Failed to create upvotes counter", zap.Error(err))
	}

	return &IssueService{
		store:       st,
		timeline:    timeline,
		locks:       newKeyedMutex(),
		logger:      logger,
		now:         now,
		tracer:      telemetry.Tracer("services"),
		transitions: transitions,
		upvotes:     upvotes,
	}
}

// ParseIssueID validates the hex form of an issue id.
func ParseIssueID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, &ValidationError{Msg: "Invalid issue id"}
	}
	return id, nil
}

// Create stores a new SUBMITTED issue owned by actor together with its first timeline entry.
func (s *IssueService) Create(ctx context.Context, actor models.Actor, in CreateIssueInput) (*models.Issue, error) {
	ctx, span := s.tracer.Start(ctx, "issue.create")
	defer span.End()

	if actor.ID.IsZero() {
		return nil, &ValidationError{Msg: "Invalid user id"}
	}
	issue, err := s.newIssue(actor, in)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.Issues().Create(ctx, issue); err != nil {
			return err
		}
		_, err := s.timeline.Record(ctx, issue.ID, issue.Status, models.ActorResident)
		return err
	})
	if err != nil {
		return nil, s.fail(span, "create issue", err)
	}

	s.logger.Info("Issue reported",
		zap.String("issue_id", issue.ID.Hex()),
		zap.String("category", string(issue.Category)),
		zap.String("created_by", actor.ID.Hex()))
	s.countTransition(ctx, "", issue.Status, models.ActorResident)
	return issue, nil
}

func (s *IssueService) newIssue(actor models.Actor, in CreateIssueInput) (*models.Issue, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ts := s.now()
	return &models.Issue{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location,
		Address:     trimmedOrNil(in.Address),
		ImageURL:    trimmedOrNil(in.ImageURL),
		Status:      models.Submitted,
		CreatedBy:   actor.ID,
		Upvotes:     []primitive.ObjectID{},
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

// AdvanceStatus moves an issue one step along the official pipeline.
// requested must equal the single successor of the current status.
func (s *IssueService) AdvanceStatus(ctx context.Context, actor models.Actor, rawID string, requested models.IssueStatus) (*models.Issue, error) {
	ctx, span := s.tracer.Start(ctx, "issue.advance_status",
		trace.WithAttributes(attribute.String("requested", string(requested))))
	defer span.End()

	if !actor.IsOfficial() {
		return nil, s.fail(span, "advance status", &ForbiddenError{Msg: "Only officials can update issue status"})
	}

	issue, err := s.mutate(ctx, rawID, func(issue *models.Issue) error {
		next, ok := issue.Status.OfficialNext()
		if !ok || requested != next {
			return &InvalidTransitionError{Current: issue.Status, Requested: requested}
		}
		issue.Status = next
		return nil
	}, models.ActorOfficial)
	if err != nil {
		return nil, s.fail(span, "advance status", err)
	}
	return issue, nil
}

// Verify lets the reporting resident confirm a RESOLVED issue.
func (s *IssueService) Verify(ctx context.Context, actor models.Actor, rawID string) (*models.Issue, error) {
	ctx, span := s.tracer.Start(ctx, "issue.verify")
	defer span.End()

	issue, err := s.mutate(ctx, rawID, func(issue *models.Issue) error {
		if !issue.IsCreator(actor) {
			return &ForbiddenError{Msg: "Only the user who raised this issue can verify it"}
		}
		if issue.Status != models.Resolved {
			return &InvalidTransitionError{
				Current:   issue.Status,
				Requested: models.Verified,
				Msg:       "Only resolved issues can be verified. Current status: " + string(issue.Status),
			}
		}
		issue.Status = models.Verified
		return nil
	}, models.ActorResident)
	if err != nil {
		return nil, s.fail(span, "verify issue", err)
	}
	return issue, nil
}

// ReopenNotSatisfied lets the reporting resident send a RESOLVED issue back to SUBMITTED.
func (s *IssueService) ReopenNotSatisfied(ctx context.Context, actor models.Actor, rawID string) (*models.Issue, error) {
	ctx, span := s.tracer.Start(ctx, "issue.reopen")
	defer span.End()

	issue, err := s.mutate(ctx, rawID, func(issue *models.Issue) error {
		if !issue.IsCreator(actor) {
			return &ForbiddenError{Msg: "Only the user who raised this issue can mark it as not satisfied"}
		}
		if issue.Status != models.Resolved {
			return &InvalidTransitionError{
				Current:   issue.Status,
				Requested: models.Submitted,
				Msg:       "Only resolved issues can be reopened. Current status: " + string(issue.Status),
			}
		}
		issue.Status = models.Submitted
		return nil
	}, models.ActorResident)
	if err != nil {
		return nil, s.fail(span, "reopen issue", err)
	}
	return issue, nil
}

// Upvote adds actor to the issue's voters and returns the new count.
func (s *IssueService) Upvote(ctx context.Context, actor models.Actor, rawID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "issue.upvote")
	defer span.End()

	if actor.ID.IsZero() {
		return 0, s.fail(span, "upvote issue", &ValidationError{Msg: "Invalid user id"})
	}
	id, err := ParseIssueID(rawID)
	if err != nil {
		return 0, s.fail(span, "upvote issue", err)
	}

	unlock := s.locks.Lock(id.Hex())
	defer unlock()

	var count int
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		issue, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if !issue.AddUpvote(actor.ID) {
			return &DuplicateVoteError{}
		}
		issue.UpdatedAt = s.now()
		if err := s.store.Issues().Update(ctx, issue); err != nil {
			return err
		}
		count = issue.UpvoteCount
		return nil
	})
	if err != nil {
		return 0, s.fail(span, "upvote issue", err)
	}

	if s.upvotes != nil {
		s.upvotes.Add(ctx, 1)
	}
	return count, nil
}

// mutate is the read-validate-write cycle shared by status operations. apply
// validates and sets the new status; the change and its timeline entry commit together.
func (s *IssueService) mutate(ctx context.Context, rawID string, apply func(*models.Issue) error, by models.ActorKind) (*models.Issue, error) {
	id, err := ParseIssueID(rawID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id.Hex())
	defer unlock()

	var (
		updated *models.Issue
		from    models.IssueStatus
	)
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		issue, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		from = issue.Status
		if err := apply(issue); err != nil {
			return err
		}
		issue.UpdatedAt = s.now()
		if err := s.store.Issues().Update(ctx, issue); err != nil {
			return err
		}
		if _, err := s.timeline.Record(ctx, issue.ID, issue.Status, by); err != nil {
			return err
		}
		updated = issue
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Issue status changed",
		zap.String("issue_id", id.Hex()),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.String("by", string(by)))
	s.countTransition(ctx, from, updated.Status, by)
	return updated, nil
}

func (s *IssueService) load(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	issue, err := s.store.Issues().GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "Issue"}
	}
	return issue, err
}

func (s *IssueService) countTransition(ctx context.Context, from, to models.IssueStatus, by models.ActorKind) {
	if s.transitions == nil {
		return
	}
	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
		attribute.String("actor", string(by)),
	))
}

// fail maps store errors into the service taxonomy, logs unexpected ones and
// marks the span.
func (s *IssueService) fail(span trace.Span, op string, err error) error {
	err = classify(op, err)

	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		s.logger.Error("Issue store failure", zap.String("op", op), zap.Error(storeErr.Err))
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
	} else {
		span.SetAttributes(attribute.String("rejected", err.Error()))
	}
	return err
}

func classify(op string, err error) error {
	var (
		validation *ValidationError
		notFound   *NotFoundError
		forbidden  *ForbiddenError
		transition *InvalidTransitionError
		duplicate  *DuplicateVoteError
		conflict   *ConflictError
		storeErr   *StoreError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound), errors.As(err, &forbidden),
		errors.As(err, &transition), errors.As(err, &duplicate), errors.As(err, &conflict),
		errors.As(err, &storeErr):
		return err
	case errors.Is(err, store.ErrConflict):
		return &ConflictError{}
	case errors.Is(err, store.ErrNotFound):
		return &NotFoundError{Resource: "Issue"}
	}
	return &StoreError{Op: op, Err: err}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
