package services

import (
	"context"
	"sort"
	"time"

	"civicbridge-be/models"
	"civicbridge-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreatorSummary is the reporter information attached to issue responses.
type CreatorSummary struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name,omitempty"`
	Role models.Role        `json:"role,omitempty"`
}

// IssueView is an issue as shown to a particular viewer.
type IssueView struct {
	models.Issue
	CreatedBy      CreatorSummary `json:"createdBy"`
	UserHasUpvoted bool           `json:"userHasUpvoted"`
}

// Get returns a single issue with its creator attached.
func (s *IssueService) Get(ctx context.Context, viewer models.Actor, rawID string) (*IssueView, error) {
	id, err := ParseIssueID(rawID)
	if err != nil {
		return nil, err
	}
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, classify("get issue", err)
	}
	views, err := s.attachCreators(ctx, viewer, []models.Issue{*issue})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Exists reports whether an issue with the given id is stored.
func (s *IssueService) Exists(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.load(ctx, id)
	if err != nil {
		return classify("get issue", err)
	}
	return nil
}

// List returns issues newest first with creators attached.
func (s *IssueService) List(ctx context.Context, viewer models.Actor, filter store.IssueFilter) ([]IssueView, error) {
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, &ValidationError{Msg: "Invalid category"}
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, &ValidationError{Msg: "Invalid status"}
	}

	issues, err := s.store.Issues().List(ctx, filter)
	if err != nil {
		return nil, classify("list issues", err)
	}
	return s.attachCreators(ctx, viewer, issues)
}

// ListByCreator returns the issues reported by actor.
func (s *IssueService) ListByCreator(ctx context.Context, actor models.Actor) ([]IssueView, error) {
	if actor.ID.IsZero() {
		return nil, &ValidationError{Msg: "Invalid user id"}
	}
	return s.List(ctx, actor, store.IssueFilter{CreatedBy: actor.ID})
}

// Recent returns the newest issues that carry coordinates.
func (s *IssueService) Recent(ctx context.Context, limit int) ([]models.Issue, error) {
	issues, err := s.store.Issues().List(ctx, store.IssueFilter{HasLocation: true, Limit: limit})
	if err != nil {
		return nil, classify("recent issues", err)
	}
	return issues, nil
}

func (s *IssueService) attachCreators(ctx context.Context, viewer models.Actor, issues []models.Issue) ([]IssueView, error) {
	ids := make([]primitive.ObjectID, 0, len(issues))
	seen := make(map[primitive.ObjectID]bool, len(issues))
	for _, issue := range issues {
		if !seen[issue.CreatedBy] {
			seen[issue.CreatedBy] = true
			ids = append(ids, issue.CreatedBy)
		}
	}

	users, err := s.store.Users().GetByIDs(ctx, ids)
	if err != nil {
		return nil, classify("load creators", err)
	}

	views := make([]IssueView, 0, len(issues))
	for _, issue := range issues {
		creator := CreatorSummary{ID: issue.CreatedBy}
		if u, ok := users[issue.CreatedBy]; ok {
			creator.Name = u.Name
			creator.Role = u.Role
		}
		views = append(views, IssueView{
			Issue:          issue,
			CreatedBy:      creator,
			UserHasUpvoted: !viewer.ID.IsZero() && issue.HasUpvoted(viewer.ID),
		})
	}
	return views, nil
}

// CountBucket is one named count in an analytics breakdown.
type CountBucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DailyCount is the number of issues reported on one day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TopIssue is an entry of the most upvoted issues list.
type TopIssue struct {
	ID          primitive.ObjectID   `json:"id"`
	Title       string               `json:"title"`
	Category    models.IssueCategory `json:"category"`
	Status      models.IssueStatus   `json:"status"`
	UpvoteCount int                  `json:"upvoteCount"`
}

// Analytics summarises issues for the officials' dashboard.
type Analytics struct {
	IssuesByCategory []CountBucket `json:"issuesByCategory"`
	IssuesByStatus   []CountBucket `json:"issuesByStatus"`
	Last7Days        []DailyCount  `json:"last7Days"`
	TopUpvoted       []TopIssue    `json:"topUpvotedIssues"`
	TotalIssues      int           `json:"totalIssues"`
	TotalUpvotes     int           `json:"totalUpvotes"`
	OpenIssues       int           `json:"openIssues"`
}

const topUpvotedLimit = 5

// Analytics computes dashboard aggregates over all issues.
func (s *IssueService) Analytics(ctx context.Context) (*Analytics, error) {
	issues, err := s.store.Issues().List(ctx, store.IssueFilter{})
	if err != nil {
		return nil, classify("issue analytics", err)
	}

	byCategory := make(map[models.IssueCategory]int)
	byStatus := make(map[models.IssueStatus]int)
	out := &Analytics{TotalIssues: len(issues)}

	today := s.now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	daily := make(map[string]int)

	for _, issue := range issues {
		byCategory[issue.Category]++
		byStatus[issue.Status]++
		out.TotalUpvotes += issue.UpvoteCount
		if issue.Status.IsOpen() {
			out.OpenIssues++
		}
		daily[issue.CreatedAt.UTC().Format("2006-01-02")]++
	}

	for _, c := range models.Categories {
		out.IssuesByCategory = append(out.IssuesByCategory, CountBucket{Name: string(c), Value: byCategory[c]})
	}
	for _, st := range models.Statuses {
		out.IssuesByStatus = append(out.IssuesByStatus, CountBucket{Name: string(st), Value: byStatus[st]})
	}
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		out.Last7Days = append(out.Last7Days, DailyCount{Date: day, Count: daily[day]})
	}

	// List is newest first and SliceStable keeps that order among equal counts.
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].UpvoteCount > issues[j].UpvoteCount
	})
	out.TopUpvoted = make([]TopIssue, 0, topUpvotedLimit)
	for _, issue := range issues {
		if len(out.TopUpvoted) == topUpvotedLimit {
			break
		}
		out.TopUpvoted = append(out.TopUpvoted, TopIssue{
			ID:          issue.ID,
			Title:       issue.Title,
			Category:    issue.Category,
			Status:      issue.Status,
			UpvoteCount: issue.UpvoteCount,
		})
	}
	return out, nil
}
