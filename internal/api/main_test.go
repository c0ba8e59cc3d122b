package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"fileshare/internal/access"
	"fileshare/internal/auth"
	"fileshare/internal/config"
	"fileshare/internal/database"
	"fileshare/internal/database/dbtest"
	"fileshare/internal/files"
	"fileshare/internal/identity"
	"fileshare/internal/models"
	"fileshare/internal/notify"
	"fileshare/internal/permissions"
	"fileshare/internal/sharing"
	"fileshare/internal/storage"
	"fileshare/internal/websocket"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testServer   *Server
	testHandler  http.Handler
	testRecorder *notify.Recorder
)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "api_test_secret", AccessTTL: time.Hour, ConfirmTTL: time.Hour},
		Storage: config.StorageConfig{
			MaxUploadBytes:    1 << 20,
			AllowedExtensions: []string{"txt", "pdf"},
			UnlinkOnDelete:    true,
		},
		HTTP: config.HTTPConfig{
			CORSOrigins: []string{"*"},
			RateLimit:   1000,
			RateBurst:   1000,
		},
		AppHost: "http://files.test",
	}
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, stop, err := dbtest.Start(ctx)
	if err != nil {
		log.Printf("api integration tests disabled: %s", err)
		os.Exit(m.Run())
	}

	tempDir, err := os.MkdirTemp("", "api-storage-test")
	if err != nil {
		log.Fatalf("Could not create temp dir: %s", err)
	}

	code := func() int {
		defer stop()
		defer os.RemoveAll(tempDir)

		localStorage, err := storage.NewLocalStorage(tempDir)
		if err != nil {
			log.Fatalf("Could not create local storage: %s", err)
		}

		cfg := testConfig()
		logger := zap.NewNop()
		store := database.NewStore(pool)

		hubCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		wsHub := websocket.NewHub(logger)
		go wsHub.Run(hubCtx)

		fileService, err := files.NewService(store, localStorage, access.New(permissions.Default()), files.Config{
			MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
			AllowedExtensions: cfg.Storage.AllowedExtensions,
			UnlinkOnDelete:    cfg.Storage.UnlinkOnDelete,
		}, wsHub, logger)
		if err != nil {
			log.Fatalf("Could not create file service: %s", err)
		}

		testRecorder = &notify.Recorder{}
		testServer = NewServer(cfg, Services{
			Store:   store,
			Files:   fileService,
			Sharing: sharing.NewService(store, fileService, wsHub, logger),
			Identity: identity.NewService(store, fileService, testRecorder, identity.Config{
				Secret:     cfg.JWT.Secret,
				ConfirmTTL: cfg.JWT.ConfirmTTL,
				BaseURL:    cfg.AppHost,
			}, logger),
		}, wsHub, logger)
		testHandler = testServer.Routes()

		return m.Run()
	}()
	os.Exit(code)
}

func requireServer(t *testing.T) {
	t.Helper()
	if testServer == nil {
		t.Skip("postgres container unavailable")
	}
}

// testUser creates a verified account with the given role and returns it
// together with a bearer token.
func testUser(t *testing.T, role permissions.Role) (*models.User, string) {
	t.Helper()
	requireServer(t)
	ctx := context.Background()

	user, err := testServer.identity.CreateAdmin(ctx, dbtest.Email(string(role)), "Test "+string(role), "password")
	require.NoError(t, err)
	if role != permissions.RoleAdmin {
		require.NoError(t, testServer.identity.SetRole(ctx, user.ID, role))
		user.Role = role
	}
	token, err := auth.GenerateJWT(user, testServer.config.JWT.Secret, time.Hour)
	require.NoError(t, err)
	return user, token
}

func doJSON(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	testHandler.ServeHTTP(rr, req)
	return rr
}

func doUpload(t *testing.T, token, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	testHandler.ServeHTTP(rr, req)
	return rr
}

func uploadFile(t *testing.T, token, filename, content string) models.File {
	t.Helper()
	rr := doUpload(t, token, filename, content)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var f models.File
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &f))
	return f
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
