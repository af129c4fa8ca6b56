package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"civicbridge-be/models"
	"civicbridge-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	all := append(handlers, func(c *gin.Context) {
		actor, _ := ActorFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": actor.ID.Hex(), "role": actor.Role})
	})
	r.GET("/", all...)
	return r
}

func tokenFor(t *testing.T, role models.Role) (string, primitive.ObjectID) {
	t.Helper()
	id := primitive.NewObjectID()
	token, err := utils.GenerateToken(testSecret, &models.User{ID: id, Role: role}, time.Hour)
	require.NoError(t, err)
	return token, id
}

func TestAuthMiddleware(t *testing.T) {
	r := newEngine(AuthMiddleware(testSecret, zap.NewNop()))
	token, id := tokenFor(t, models.RoleResident)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), id.Hex())
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookie, Value: token})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "No authorization token provided")
	})

	t.Run("tampered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token+"x")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	r := newEngine(AuthMiddleware(testSecret, zap.NewNop()), RequireRole(models.RoleOfficial))

	resident, _ := tokenFor(t, models.RoleResident)
	official, _ := tokenFor(t, models.RoleOfficial)

	for name, tc := range map[string]struct {
		token string
		want  int
	}{
		"resident": {resident, http.StatusForbidden},
		"official": {official, http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tc.token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestIssueRateLimiter_DisabledWithoutRedis(t *testing.T) {
	r := newEngine(AuthMiddleware(testSecret, zap.NewNop()), IssueRateLimiter(IssueRateLimit{Limit: 1}, zap.NewNop()))
	token, _ := tokenFor(t, models.RoleResident)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestIssueRateLimiter_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	prefix := "civicbridge_test_" + primitive.NewObjectID().Hex()
	r := newEngine(
		AuthMiddleware(testSecret, zap.NewNop()),
		IssueRateLimiter(IssueRateLimit{Client: client, KeyPrefix: prefix, Limit: 2, Window: time.Minute}, zap.NewNop()),
	)
	token, id := tokenFor(t, models.RoleResident)
	t.Cleanup(func() { client.Del(context.Background(), prefix+":"+id.Hex()) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
