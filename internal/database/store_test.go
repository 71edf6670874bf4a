package database_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/edgard/botfleet/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "bots.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

var ignoreTimestamps = cmpopts.IgnoreFields(database.BotConfig{}, "CreatedAt", "UpdatedAt")

func TestInsertBotIsIdempotentForDuplicateToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	id, inserted, err := store.InsertBot(ctx, "T1", "Hi")
	if err != nil {
		t.Fatalf("InsertBot: %v", err)
	}
	if !inserted || id != 1 {
		t.Fatalf("InsertBot = (%d, %v), want (1, true)", id, inserted)
	}

	dupID, inserted, err := store.InsertBot(ctx, "T1", "Bye")
	if err != nil {
		t.Fatalf("duplicate InsertBot returned error: %v", err)
	}
	if inserted {
		t.Error("duplicate InsertBot reported inserted=true")
	}
	if dupID != id {
		t.Errorf("duplicate InsertBot id = %d, want existing id %d", dupID, id)
	}

	bots, err := store.ListBots(ctx)
	if err != nil {
		t.Fatalf("ListBots: %v", err)
	}
	want := []database.BotConfig{{ID: 1, Token: "T1", Greeting: "Hi"}}
	if diff := cmp.Diff(want, bots, ignoreTimestamps); diff != "" {
		t.Errorf("ListBots mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateGreetingOnlyTouchesTargetBot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for _, tok := range []string{"T1", "T2", "T3"} {
		if _, _, err := store.InsertBot(ctx, tok, "Hello "+tok); err != nil {
			t.Fatalf("InsertBot(%s): %v", tok, err)
		}
	}

	if err := store.UpdateGreeting(ctx, 2, "Welcome aboard"); err != nil {
		t.Fatalf("UpdateGreeting: %v", err)
	}

	bots, err := store.ListBots(ctx)
	if err != nil {
		t.Fatalf("ListBots: %v", err)
	}
	want := []database.BotConfig{
		{ID: 1, Token: "T1", Greeting: "Hello T1"},
		{ID: 2, Token: "T2", Greeting: "Welcome aboard"},
		{ID: 3, Token: "T3", Greeting: "Hello T3"},
	}
	if diff := cmp.Diff(want, bots, ignoreTimestamps); diff != "" {
		t.Errorf("ListBots mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "update greeting",
			call: func() error { return store.UpdateGreeting(ctx, 42, "x") },
		},
		{
			name: "get bot",
			call: func() error { _, err := store.GetBot(ctx, 42); return err },
		},
		{
			name: "delete bot",
			call: func() error { return store.DeleteBot(ctx, 42) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, database.ErrBotNotFound) {
				t.Errorf("got error %v, want ErrBotNotFound", err)
			}
		})
	}
}

func TestInsertBotValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name     string
		token    string
		greeting string
	}{
		{name: "empty token", token: "", greeting: "Hi"},
		{name: "whitespace token", token: "   ", greeting: "Hi"},
		{name: "empty greeting", token: "T1", greeting: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := store.InsertBot(ctx, tt.token, tt.greeting); err == nil {
				t.Error("InsertBot succeeded, want error")
			}
		})
	}

	bots, err := store.ListBots(ctx)
	if err != nil {
		t.Fatalf("ListBots: %v", err)
	}
	if len(bots) != 0 {
		t.Errorf("store has %d bots after rejected inserts, want 0", len(bots))
	}
}

func TestGetAndDeleteBot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	id, _, err := store.InsertBot(ctx, "T1", "Hi")
	if err != nil {
		t.Fatalf("InsertBot: %v", err)
	}

	got, err := store.GetBot(ctx, id)
	if err != nil {
		t.Fatalf("GetBot: %v", err)
	}
	if got.Token != "T1" || got.Greeting != "Hi" {
		t.Errorf("GetBot = %+v, want token T1 greeting Hi", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("GetBot returned zero CreatedAt")
	}

	if err := store.DeleteBot(ctx, id); err != nil {
		t.Fatalf("DeleteBot: %v", err)
	}
	bots, err := store.ListBots(ctx)
	if err != nil {
		t.Fatalf("ListBots: %v", err)
	}
	if len(bots) != 0 {
		t.Errorf("ListBots after delete = %d bots, want 0", len(bots))
	}
}

func TestConcurrentInsertsDoNotLoseUpdates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	tokens := []string{"A", "B", "C", "D", "E", "A", "B"}
	var wg sync.WaitGroup
	for _, tok := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := store.InsertBot(ctx, tok, "hi"); err != nil {
				t.Errorf("InsertBot(%s): %v", tok, err)
			}
		}()
	}
	wg.Wait()

	bots, err := store.ListBots(ctx)
	if err != nil {
		t.Fatalf("ListBots: %v", err)
	}
	if len(bots) != 5 {
		t.Errorf("ListBots returned %d bots, want 5 unique tokens", len(bots))
	}
}

func TestRunSQLMaintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.RunSQLMaintenance(context.Background()); err != nil {
		t.Fatalf("RunSQLMaintenance: %v", err)
	}
}

func TestNewDBCreatesDirectoryAndMigrates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "data", "bots.db")
	db, err := database.NewDB(path)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	version, err := database.Migrate(db.DB)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if version != 1 {
		t.Errorf("schema version = %d, want 1", version)
	}
}

func TestNewDBRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := database.NewDB("  "); err == nil {
		t.Error("NewDB accepted an empty path")
	}
}
