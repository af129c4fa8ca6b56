package controllers

import (
	"context"
	"net/http"
	"time"

	"civicbridge-be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TimelineController struct {
	issues   *services.IssueService
	timeline *services.TimelineRecorder
	timeout  time.Duration
	logger   *zap.Logger
}

func NewTimelineController(issues *services.IssueService, timeline *services.TimelineRecorder, timeout time.Duration, logger *zap.Logger) *TimelineController {
	return &TimelineController{issues: issues, timeline: timeline, timeout: timeout, logger: logger}
}

// GetIssueTimeline returns the status history of an issue, oldest first.
func (tc *TimelineController) GetIssueTimeline(c *gin.Context) {
	id, err := services.ParseIssueID(c.Param("issueId"))
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), tc.timeout)
	defer cancel()

	if err := tc.issues.Exists(ctx, id); err != nil {
		respondError(c, tc.logger, err)
		return
	}

	entries, err := tc.timeline.ListByIssue(ctx, id)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
