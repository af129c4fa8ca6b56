package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"civicbridge-be/config"
	"civicbridge-be/middlewares"
	"civicbridge-be/models"
	"civicbridge-be/services"
	"civicbridge-be/store/memory"
	"civicbridge-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "router-test-secret"

type testServer struct {
	router *gin.Engine
	users  *services.UserService

	resident string
	neighbor string
	official string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env: "test",
		Server: config.ServerConfig{
			Port:           5000,
			RequestTimeout: 5 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Store: config.StoreConfig{Driver: config.DriverMemory},
		Auth:  config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
	}

	st := memory.New()
	logger := zap.NewNop()
	timeline := services.NewTimelineRecorder(st.Timeline(), logger)
	users := services.NewUserService(st.Users(), logger)

	srv := &testServer{
		router: NewRouter(cfg, Deps{
			Issues:   services.NewIssueService(st, timeline, logger),
			Timeline: timeline,
			Users:    users,
			Logger:   logger,
		}),
		users: users,
	}
	srv.resident = srv.tokenFor(t, "Resident One", "one@example.com", models.RoleResident)
	srv.neighbor = srv.tokenFor(t, "Resident Two", "two@example.com", models.RoleResident)
	srv.official = srv.tokenFor(t, "Ward Officer", "officer@city.gov", models.RoleOfficial)
	return srv
}

func (s *testServer) tokenFor(t *testing.T, name, email string, role models.Role) string {
	t.Helper()
	user, err := s.users.Register(context.Background(), services.RegisterInput{
		Name: name, Email: email, Password: "secret123", Role: role,
	})
	require.NoError(t, err)
	token, err := utils.GenerateToken(testSecret, user, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type issueEnvelope struct {
	Message string       `json:"message"`
	Issue   models.Issue `json:"issue"`
}

func (s *testServer) createIssue(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/issues", s.resident, gin.H{
		"title":       "Water main leak",
		"description": "Water pooling on Elm street since Monday",
		"category":    "WATER",
		"location":    gin.H{"type": "Point", "coordinates": []float64{-0.1276, 51.5072}},
		"address":     "12 Elm Street",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := decode[issueEnvelope](t, w)
	assert.Equal(t, "Issue reported successfully", env.Message)
	assert.Equal(t, models.Submitted, env.Issue.Status)
	return env.Issue.ID.Hex()
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "New Resident", "email": "new@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "RESIDENT", decode[map[string]any](t, w)["role"])

	w = s.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Dup", "email": "new@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "User with this email already exists")

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "new@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "new@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[map[string]any](t, w)
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)

	var sessionCookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middlewares.AuthCookie {
			sessionCookie = ck
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(sessionCookie)
	me := httptest.NewRecorder()
	s.router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "new@example.com", decode[map[string]any](t, me)["email"])

	w = s.do(t, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIssues_RequireAuth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/issues", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIssues_CreateValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/issues", s.resident, gin.H{
		"title": "Something", "description": "Details", "category": "PARKS",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid category")

	w = s.do(t, http.MethodPost, "/issues", s.resident, gin.H{"description": "Details", "category": "ROAD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssues_FullLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t)

	// residents cannot move the pipeline
	w := s.do(t, http.MethodPatch, "/issues/"+id+"/status", s.resident, gin.H{"status": "ACKNOWLEDGED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// skipping a step is rejected with both statuses in the body
	w = s.do(t, http.MethodPatch, "/issues/"+id+"/status", s.official, gin.H{"status": "ASSIGNED"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Invalid status transition from SUBMITTED to ASSIGNED", body["error"])
	assert.Equal(t, "SUBMITTED", body["currentStatus"])
	assert.Equal(t, "ASSIGNED", body["requestedStatus"])

	// verify before resolution
	w = s.do(t, http.MethodPatch, "/issues/"+id+"/verify", s.resident, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Only resolved issues can be verified. Current status: SUBMITTED")

	for _, st := range []string{"ACKNOWLEDGED", "ASSIGNED", "IN_PROGRESS", "RESOLVED"} {
		w = s.do(t, http.MethodPatch, "/issues/"+id+"/status", s.official, gin.H{"status": st})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		env := decode[issueEnvelope](t, w)
		assert.Equal(t, "Status updated successfully", env.Message)
		assert.Equal(t, models.IssueStatus(st), env.Issue.Status)
	}

	// only the reporter may respond to the resolution
	w = s.do(t, http.MethodPatch, "/issues/"+id+"/not-satisfied", s.neighbor, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/issues/"+id+"/not-satisfied", s.resident, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.Submitted, decode[issueEnvelope](t, w).Issue.Status)

	for _, st := range []string{"ACKNOWLEDGED", "ASSIGNED", "IN_PROGRESS", "RESOLVED"} {
		w = s.do(t, http.MethodPatch, "/issues/"+id+"/status", s.official, gin.H{"status": st})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPatch, "/issues/"+id+"/verify", s.resident, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.Verified, decode[issueEnvelope](t, w).Issue.Status)

	// VERIFIED is terminal
	w = s.do(t, http.MethodPatch, "/issues/"+id+"/status", s.official, gin.H{"status": "SUBMITTED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/timeline/"+id, s.resident, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]models.TimelineEntry](t, w)
	want := []models.IssueStatus{
		models.Submitted, models.Acknowledged, models.Assigned, models.InProgress, models.Resolved,
		models.Submitted, models.Acknowledged, models.Assigned, models.InProgress, models.Resolved,
		models.Verified,
	}
	require.Len(t, entries, len(want))
	for i, e := range entries {
		assert.Equal(t, want[i], e.Status, "entry %d", i)
	}
	assert.Equal(t, models.ActorResident, entries[0].UpdatedBy)
	assert.Equal(t, models.ActorOfficial, entries[1].UpdatedBy)
	assert.Equal(t, models.ActorResident, entries[5].UpdatedBy)
	assert.Equal(t, models.ActorResident, entries[10].UpdatedBy)
}

func TestIssues_BadAndUnknownIDs(t *testing.T) {
	s := newTestServer(t)
	unknown := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"get bad id", http.MethodGet, "/issues/not-an-id", s.resident, nil, http.StatusBadRequest},
		{"get unknown", http.MethodGet, "/issues/" + unknown, s.resident, nil, http.StatusNotFound},
		{"status unknown", http.MethodPatch, "/issues/" + unknown + "/status", s.official, gin.H{"status": "ACKNOWLEDGED"}, http.StatusNotFound},
		{"status unknown value on unknown issue", http.MethodPatch, "/issues/" + unknown + "/status", s.official, gin.H{"status": "DONE"}, http.StatusNotFound},
		{"status missing body", http.MethodPatch, "/issues/" + unknown + "/status", s.official, gin.H{}, http.StatusBadRequest},
		{"verify unknown", http.MethodPatch, "/issues/" + unknown + "/verify", s.resident, nil, http.StatusNotFound},
		{"upvote bad id", http.MethodPost, "/issues/xyz/upvote", s.resident, nil, http.StatusBadRequest},
		{"timeline bad id", http.MethodGet, "/timeline/xyz", s.resident, nil, http.StatusBadRequest},
		{"timeline unknown", http.MethodGet, "/timeline/" + unknown, s.resident, nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestIssues_UnknownStatusValue(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t)

	w := s.do(t, http.MethodPatch, "/issues/"+id+"/status", s.official, gin.H{"status": "done"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Invalid status transition from SUBMITTED to DONE", body["error"])
	assert.Equal(t, "SUBMITTED", body["currentStatus"])
	assert.Equal(t, "DONE", body["requestedStatus"])

	w = s.do(t, http.MethodGet, "/timeline/"+id, s.resident, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.TimelineEntry](t, w), 1)
}

func TestIssues_Upvote(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t)

	w := s.do(t, http.MethodPost, "/issues/"+id+"/upvote", s.neighbor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Issue upvoted successfully","upvoteCount":1}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/issues/"+id+"/upvote", s.neighbor, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "You have already upvoted this issue")

	w = s.do(t, http.MethodGet, "/issues/"+id, s.neighbor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[map[string]any](t, w)
	assert.Equal(t, float64(1), view["upvoteCount"])
	assert.Equal(t, true, view["userHasUpvoted"])
	creator, _ := view["createdBy"].(map[string]any)
	assert.Equal(t, "Resident One", creator["name"])
}

func TestIssues_ConcurrentUpvotes(t *testing.T) {
	s := newTestServer(t)
	id := s.createIssue(t)

	const voters = 12
	tokens := make([]string, voters)
	for i := range tokens {
		tokens[i] = s.tokenFor(t, "Voter", primitive.NewObjectID().Hex()+"@example.com", models.RoleResident)
	}

	var wg sync.WaitGroup
	codes := make([]int, voters)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = s.do(t, http.MethodPost, "/issues/"+id+"/upvote", tokens[i], nil).Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	w := s.do(t, http.MethodGet, "/issues/"+id, s.resident, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(voters), decode[map[string]any](t, w)["upvoteCount"])
}

func TestIssues_ListingEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.createIssue(t)

	w := s.do(t, http.MethodPost, "/issues", s.neighbor, gin.H{
		"title": "Pothole", "description": "Deep pothole near school", "category": "ROAD",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/issues", s.official, nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]map[string]any](t, w)
	require.Len(t, all, 2)
	assert.Equal(t, "Pothole", all[0]["title"], "newest first")

	w = s.do(t, http.MethodGet, "/issues?category=water", s.official, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = s.do(t, http.MethodGet, "/issues?status=BOGUS", s.official, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/issues/mine", s.neighbor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[[]map[string]any](t, w)
	require.Len(t, mine, 1)
	assert.Equal(t, "Pothole", mine[0]["title"])

	w = s.do(t, http.MethodGet, "/issues/recent", s.resident, nil)
	require.Equal(t, http.StatusOK, w.Code)
	markers := decode[[]map[string]any](t, w)
	require.Len(t, markers, 1, "only issues with coordinates")
	assert.InDelta(t, 51.5072, markers[0]["latitude"], 1e-9)

	w = s.do(t, http.MethodGet, "/issues/analytics", s.official, nil)
	require.Equal(t, http.StatusOK, w.Code)
	analytics := decode[services.Analytics](t, w)
	assert.Equal(t, 2, analytics.TotalIssues)
	assert.Equal(t, 2, analytics.OpenIssues)
	assert.Len(t, analytics.Last7Days, 7)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/issues", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
