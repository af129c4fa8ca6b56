package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"civicbridge-be/models"
	"civicbridge-be/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"validation", &services.ValidationError{Msg: "Title is required"}, http.StatusBadRequest, "Title is required"},
		{"duplicate vote", &services.DuplicateVoteError{}, http.StatusBadRequest, "You have already upvoted this issue"},
		{"not found", &services.NotFoundError{Resource: "Issue"}, http.StatusNotFound, "Issue not found"},
		{"forbidden", &services.ForbiddenError{Msg: "nope"}, http.StatusForbidden, "nope"},
		{"conflict", &services.ConflictError{}, http.StatusConflict, (&services.ConflictError{}).Error()},
		{"wrapped not found", fmt.Errorf("get: %w", &services.NotFoundError{Resource: "User"}), http.StatusNotFound, "User not found"},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"store failure", &services.StoreError{Op: "update issue", Err: errors.New("connection reset")}, http.StatusInternalServerError, "Something went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, zap.NewNop(), tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestRespondError_InvalidTransitionCarriesStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, zap.NewNop(), &services.InvalidTransitionError{
		Current:   models.Submitted,
		Requested: models.InProgress,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SUBMITTED", body["currentStatus"])
	assert.Equal(t, "IN_PROGRESS", body["requestedStatus"])
	assert.Equal(t, "Invalid status transition from SUBMITTED to IN_PROGRESS", body["error"])
}
