package routes

import (
	"civicbridge-be/controllers"
	"civicbridge-be/middlewares"
	"civicbridge-be/models"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes. Every route needs a session; creation
// is additionally rate limited and status updates are for officials only.
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, requireAuth, rateLimit gin.HandlerFunc) {
	issue := r.Group("/issues", requireAuth)
	{
		issue.POST("", rateLimit, ic.CreateIssue)
		issue.GET("", ic.GetAllIssues)
		issue.GET("/mine", ic.GetIssuesByUser)
		issue.GET("/recent", ic.RecentIssues)
		issue.GET("/analytics", ic.GetIssueAnalytics)
		issue.GET("/:id", ic.GetIssue)
		issue.PATCH("/:id/status", middlewares.RequireRole(models.RoleOfficial), ic.UpdateIssueStatus)
		issue.PATCH("/:id/verify", ic.VerifyIssue)
		issue.PATCH("/:id/not-satisfied", ic.MarkNotSatisfied)
		issue.POST("/:id/upvote", ic.UpvoteIssue)
	}
}
