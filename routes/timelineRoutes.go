package routes

import (
	"civicbridge-be/controllers"

	"github.com/gin-gonic/gin"
)

func TimelineRoutes(r *gin.Engine, tc *controllers.TimelineController, requireAuth gin.HandlerFunc) {
	r.GET("/timeline/:issueId", requireAuth, tc.GetIssueTimeline)
}
