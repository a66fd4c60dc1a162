package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"tourbook/internal/cache"
	"tourbook/internal/config"
	"tourbook/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	redis  *miniredis.Miniredis
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}, &models.Reaction{}))
	return db
}

// setupTestEnv wires a full server against sqlite and miniredis.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() { cache.SetClient(nil) })

	cfg := &config.Config{
		JWTSecret:               testSecret,
		Env:                     "test",
		CommentMaxLength:        500,
		CommentTreeCacheTTLSecs: 60,
	}
	s, err := NewServerWithDeps(cfg, db, client)
	require.NoError(t, err)

	return &testEnv{server: s, app: s.NewApp(), db: db, redis: mr}
}

func generateToken(t *testing.T, userID uint, issuer, audience string, exp time.Duration, jti string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": issuer,
		"aud": audience,
		"exp": time.Now().Add(exp).Unix(),
	}
	if jti != "" {
		claims["jti"] = jti
	}
	str, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return str
}

func bearer(t *testing.T, userID uint) string {
	return "Bearer " + generateToken(t, userID, tokenIssuer, tokenAudience, time.Hour, "")
}

// do sends a request and decodes a JSON response body into out when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path, auth string, body any, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e *testEnv) seedUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, DisplayName: username + " display"}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) seedPost(t *testing.T, author *models.User) *models.Post {
	t.Helper()
	p := &models.Post{UserID: author.ID, Title: "Kayaking the Dalmatian coast"}
	require.NoError(t, e.db.Create(p).Error)
	return p
}
