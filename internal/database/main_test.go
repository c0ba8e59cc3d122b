package database

import (
	"context"
	"log"
	"os"
	"testing"

	"fileshare/internal/database/dbtest"
)

var testStore *Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, stop, err := dbtest.Start(ctx)
	if err != nil {
		log.Printf("integration tests disabled: %s", err)
	} else {
		testStore = NewStore(pool)
	}

	code := m.Run()
	if stop != nil {
		stop()
	}
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testStore == nil {
		t.Skip("postgres container unavailable")
	}
}
