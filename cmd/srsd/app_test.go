package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/config"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "srsd-test-secret-that-is-at-least-32-bytes"

func testConfig(driver, url string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			LogLevel:        "debug",
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{Driver: driver, URL: url},
		Auth:     config.AuthConfig{JWTSecret: testSecret},
		Review:   config.ReviewConfig{MaxAttempts: 3},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	log, _ := logger.NewBufferLogger()
	app, err := newApplication(context.Background(), cfg, log, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(app.cleanup)
	return app
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestNewApplicationRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := newApplication(context.Background(), testConfig("mysql", "x"), nil, prometheus.NewRegistry())
	assert.ErrorContains(t, err, `unsupported database driver "mysql"`)
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, testConfig(driverMemory, ""))
	assert.Error(t, app.migrate(context.Background(), "up"))
}

func TestRouter(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, testConfig(driverMemory, ""))
	router := app.setupRouter()

	owner := uuid.New()
	deck, n, err := seedDeck(context.Background(), app.stores.seeder, owner, "Capitals",
		strings.NewReader(`[{"term":"France","definition":"Paris"},{"term":"Peru","definition":"Lima"}]`),
		time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	serve := func(method, path, body, auth string) *httptest.ResponseRecorder {
		var r *http.Request
		if body != "" {
			r = httptest.NewRequest(method, path, strings.NewReader(body))
		} else {
			r = httptest.NewRequest(method, path, nil)
		}
		if auth != "" {
			r.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w
	}

	t.Run("health", func(t *testing.T) {
		w := serve(http.MethodGet, "/health", "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	})

	t.Run("api requires identity", func(t *testing.T) {
		w := serve(http.MethodGet, "/api/decks/"+deck.ID.String()+"/cards/due", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("review session", func(t *testing.T) {
		auth := bearer(t, owner)

		w := serve(http.MethodGet, "/api/decks/"+deck.ID.String()+"/cards/due", "", auth)
		require.Equal(t, http.StatusOK, w.Code)
		var due []struct {
			ID    uuid.UUID `json:"id"`
			Phase string    `json:"phase"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &due))
		require.Len(t, due, 2)
		assert.Equal(t, string(domain.PhaseNew), due[0].Phase)

		w = serve(http.MethodPost, "/api/cards/"+due[0].ID.String()+"/review", `{"grade":2}`, auth)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"phase":"lapsed"`)

		w = serve(http.MethodPost, "/api/cards/"+due[1].ID.String()+"/review", `{"grade":3}`, bearer(t, uuid.New()))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		w := serve(http.MethodGet, "/metrics", "", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "srs_review_duration_seconds")
		assert.Contains(t, body, "srs_due_cards_served_total")
		assert.Contains(t, body, "go_goroutines")
	})
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, testConfig(driverMemory, ""))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, ln, app.setupRouter()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
