package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/GuildWar/config"
	"github.com/Gopher0727/GuildWar/internal/handler"
	"github.com/Gopher0727/GuildWar/internal/remote"
	"github.com/Gopher0727/GuildWar/internal/roster"
	"github.com/Gopher0727/GuildWar/internal/ws"
	"github.com/Gopher0727/GuildWar/middleware/jwt"
	"github.com/Gopher0727/GuildWar/utils/ratelimit"
)

const testSecret = "test-secret"

const upstreamEvent = `{
	"id": 42, "region": "vn", "weekStartDate": "2026-10-12",
	"signups": [{"eventId": 42, "userId": 1, "timeSlots": ["sat_19:30-20:00"],
		"user": {"id": 1, "username": "Alice", "region": "vn", "primaryRole": "tank",
			"primaryClass": ["strategicSword", "heavenquakerSpear"]}}],
	"teams": [{"id": 10, "eventId": 42, "name": "Team A", "day": "saturday", "members": []}]
}`

// upstream stands in for the roster service and remembers the headers of
// every mutation it receives.
type upstream struct {
	mu    sync.Mutex
	auth  []string
	trace []string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodGet {
		_, _ = io.WriteString(w, upstreamEvent)
		return
	}
	u.mu.Lock()
	u.auth = append(u.auth, r.Header.Get("Authorization"))
	u.trace = append(u.trace, r.Header.Get("X-Trace-ID"))
	u.mu.Unlock()
	_, _ = io.WriteString(w, `{"message":"ok"}`)
}

type fixture struct {
	router   *gin.Engine
	tokens   *jwt.TokenManager
	upstream *upstream
}

func newFixture(t *testing.T, limits config.RateLimitConfig) *fixture {
	t.Helper()
	return newFixtureWithRedis(t, limits, miniredis.RunT(t).Addr())
}

func newFixtureWithRedis(t *testing.T, limits config.RateLimitConfig, redisAddr string) *fixture {
	t.Helper()
	up := &upstream{}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })

	engine := roster.NewEngine(remote.NewClient(srv.URL, 5*time.Second, nil))
	tokens := jwt.NewTokenManager(testSecret, 1, 1)
	mw := NewMiddlewareManager(tokens, ratelimit.NewRedisLimiter(rdb, nil, false), nil, &limits)
	r := NewRouter(gin.TestMode, mw, handler.NewRosterHandler(engine, nil), handler.NewAuthHandler(tokens), ws.NewHub(nil))

	return &fixture{router: r, tokens: tokens, upstream: up}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) token(t *testing.T, region string, admin bool) string {
	t.Helper()
	tok, err := f.tokens.GenerateToken(1, "admin", region, admin)
	require.NoError(t, err)
	return tok
}

const moveBody = `{"memberId":1,"from":{"kind":"roster"},"to":{"kind":"team","teamId":10}}`

func defaultLimits() config.RateLimitConfig {
	return config.RateLimitConfig{RegisterPerMinute: 5, MutationPerMinute: 100}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, defaultLimits())
	w := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestAdminMoveForwardsToken(t *testing.T) {
	f := newFixture(t, defaultLimits())
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/regions/vn/event", "", "").Code)

	tok := f.token(t, "vn", true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/regions/vn/moves", strings.NewReader(moveBody))
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("X-Trace-ID", "trace-42")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "trace-42", w.Header().Get("X-Trace-ID"))
	assert.Contains(t, w.Body.String(), `"Team A"`)

	f.upstream.mu.Lock()
	defer f.upstream.mu.Unlock()
	assert.Equal(t, []string{"Bearer " + tok}, f.upstream.auth)
	assert.Equal(t, []string{"trace-42"}, f.upstream.trace)
}

func TestAdminGuards(t *testing.T) {
	f := newFixture(t, defaultLimits())

	t.Run("missing token", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/regions/vn/moves", "", moveBody)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/regions/vn/moves", "not-a-jwt", moveBody)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid token")
	})

	t.Run("not an admin", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/regions/vn/moves", f.token(t, "vn", false), moveBody)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("other region", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/regions/vn/moves", f.token(t, "na", true), moveBody)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	f.upstream.mu.Lock()
	defer f.upstream.mu.Unlock()
	assert.Empty(t, f.upstream.auth, "rejected requests never reach the roster service")
}

func TestAuthRefreshRoute(t *testing.T) {
	f := newFixture(t, defaultLimits())

	w := f.do(t, http.MethodPost, "/api/v1/auth/refresh", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/auth/refresh", f.token(t, "vn", true), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"token"`)
}

func TestMutationRateLimit(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{RegisterPerMinute: 5, MutationPerMinute: 2})
	tok := f.token(t, "vn", true)

	for range 2 {
		w := f.do(t, http.MethodDelete, "/api/v1/regions/vn/teams/999", tok, "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := f.do(t, http.MethodDelete, "/api/v1/regions/vn/teams/999", tok, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestSignupRateLimitPerIP(t *testing.T) {
	f := newFixture(t, config.RateLimitConfig{RegisterPerMinute: 1, MutationPerMinute: 100})
	body := `{"username":"Zed","region":"vn","primaryClass":["strategicSword","heavenquakerSpear"],
		"primaryRole":"dps","timeSlots":["sat_19:30-20:00"]}`

	w := f.do(t, http.MethodPost, "/api/v1/signup", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/v1/signup", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitFailsClosedWithoutRedis(t *testing.T) {
	f := newFixtureWithRedis(t, defaultLimits(), "127.0.0.1:1")

	w := f.do(t, http.MethodPost, "/api/v1/signup", "", `{"username":"Zed","region":"vn"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, defaultLimits())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/regions/vn/moves", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
