package identity

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"fileshare/internal/access"
	"fileshare/internal/database"
	"fileshare/internal/database/dbtest"
	"fileshare/internal/files"
	"fileshare/internal/notify"
	"fileshare/internal/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "identity-test-secret"

var testStore *database.Store

func TestMain(m *testing.M) {
	pool, stop, err := dbtest.Start(context.Background())
	if err != nil {
		log.Printf("integration tests disabled: %s", err)
	} else {
		testStore = database.NewStore(pool)
	}

	code := m.Run()
	if stop != nil {
		stop()
	}
	os.Exit(code)
}

func newTestService(t *testing.T) (*Service, *files.Service, *notify.Recorder) {
	t.Helper()
	if testStore == nil {
		t.Skip("postgres container unavailable")
	}
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	fs, err := files.NewService(testStore, st, access.New(nil), files.Config{
		MaxUploadBytes:    1 << 20,
		AllowedExtensions: []string{"txt"},
	}, nil, zap.NewNop())
	require.NoError(t, err)

	rec := &notify.Recorder{}
	svc := NewService(testStore, fs, rec, Config{
		Secret:     testSecret,
		ConfirmTTL: time.Hour,
		BaseURL:    "https://files.example.com/",
	}, zap.NewNop())
	return svc, fs, rec
}
