package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"civicbridge-be/middlewares"
	"civicbridge-be/models"
	"civicbridge-be/services"
	"civicbridge-be/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultRecentLimit = 19
	maxRecentLimit     = 100
)

type IssueController struct {
	issues  *services.IssueService
	timeout time.Duration
	logger  *zap.Logger
}

func NewIssueController(issues *services.IssueService, timeout time.Duration, logger *zap.Logger) *IssueController {
	return &IssueController{issues: issues, timeout: timeout, logger: logger}
}

// actor pulls the authenticated caller or answers 401.
func actor(c *gin.Context) (models.Actor, bool) {
	a, ok := middlewares.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	}
	return a, ok
}

// CreateIssue handles the creation of a new issue
func (ic *IssueController) CreateIssue(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var input struct {
		Title       string           `json:"title"`
		Description string           `json:"description"`
		Category    string           `json:"category"`
		Location    *models.GeoPoint `json:"location,omitempty"`
		Latitude    *float64         `json:"latitude,omitempty"`
		Longitude   *float64         `json:"longitude,omitempty"`
		Address     *string          `json:"address,omitempty"`
		ImageURL    *string          `json:"imageUrl,omitempty"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	location := input.Location
	if location == nil && input.Latitude != nil && input.Longitude != nil {
		location = models.NewGeoPoint(*input.Longitude, *input.Latitude)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issue, err := ic.issues.Create(ctx, caller, services.CreateIssueInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    models.IssueCategory(strings.ToUpper(strings.TrimSpace(input.Category))),
		Location:    location,
		Address:     input.Address,
		ImageURL:    input.ImageURL,
	})
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Issue reported successfully",
		"issue":   issue,
	})
}

// GetAllIssues lists issues newest first, optionally filtered by category and status.
func (ic *IssueController) GetAllIssues(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	filter := store.IssueFilter{
		Category: models.IssueCategory(strings.ToUpper(c.Query("category"))),
		Status:   models.IssueStatus(strings.ToUpper(c.Query("status"))),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issues, err := ic.issues.List(ctx, caller, filter)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// GetIssuesByUser lists the caller's own reports.
func (ic *IssueController) GetIssuesByUser(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issues, err := ic.issues.ListByCreator(ctx, caller)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// RecentIssues returns the newest issues that can be placed on a map.
func (ic *IssueController) RecentIssues(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(n, maxRecentLimit)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issues, err := ic.issues.Recent(ctx, limit)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}

	markers := make([]gin.H, 0, len(issues))
	for _, issue := range issues {
		markers = append(markers, gin.H{
			"id":        issue.ID,
			"title":     issue.Title,
			"category":  issue.Category,
			"status":    issue.Status,
			"latitude":  issue.Location.Latitude(),
			"longitude": issue.Location.Longitude(),
			"createdAt": issue.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, markers)
}

// GetIssueAnalytics returns dashboard aggregates.
func (ic *IssueController) GetIssueAnalytics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	analytics, err := ic.issues.Analytics(ctx)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// GetIssue returns one issue with its reporter.
func (ic *IssueController) GetIssue(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issue, err := ic.issues.Get(ctx, caller, c.Param("id"))
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdateIssueStatus advances an issue one step. Officials only.
func (ic *IssueController) UpdateIssueStatus(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}
	requested := models.IssueStatus(strings.ToUpper(strings.TrimSpace(input.Status)))

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issue, err := ic.issues.AdvanceStatus(ctx, caller, c.Param("id"), requested)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Status updated successfully",
		"issue":   issue,
	})
}

// VerifyIssue lets the reporter confirm a resolution.
func (ic *IssueController) VerifyIssue(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issue, err := ic.issues.Verify(ctx, caller, c.Param("id"))
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Issue marked as verified",
		"issue":   issue,
	})
}

// MarkNotSatisfied lets the reporter reject a resolution, reopening the issue.
func (ic *IssueController) MarkNotSatisfied(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issue, err := ic.issues.ReopenNotSatisfied(ctx, caller, c.Param("id"))
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Issue reopened and visible to everyone",
		"issue":   issue,
	})
}

// UpvoteIssue records one vote per user.
func (ic *IssueController) UpvoteIssue(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	count, err := ic.issues.Upvote(ctx, caller, c.Param("id"))
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Issue upvoted successfully",
		"upvoteCount": count,
	})
}
