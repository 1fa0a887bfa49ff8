// Package testsupport provides database and fixture helpers for tests.
package testsupport

import (
	"context"
	_ "embed"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/goliatone/go-feedvault/store"
	"github.com/uptrace/bun"
)

//go:embed testdata/seed.json
var defaultSeed []byte

// Fixture describes rows to seed before a test.
type Fixture struct {
	Users []FixtureUser `json:"users"`
}

// FixtureUser is a user row in a fixture file.
type FixtureUser struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// DefaultFixture returns the embedded seed with users 1 through 5.
func DefaultFixture(t testing.TB) Fixture {
	t.Helper()

	var f Fixture
	if err := json.Unmarshal(defaultSeed, &f); err != nil {
		t.Fatalf("failed to unmarshal default seed: %v", err)
	}
	return f
}

// DSN returns a sqlite DSN for a fresh database file under the test's temp dir.
func DSN(t testing.TB) string {
	t.Helper()
	return "file:" + filepath.Join(t.TempDir(), "feedvault.db") + "?_foreign_keys=on&_busy_timeout=5000"
}

// OpenDB opens a fresh sqlite database with the feed schema created.
// The database is closed when the test ends.
func OpenDB(t testing.TB) *bun.DB {
	t.Helper()

	db, err := store.Open(store.DriverSQLite, DSN(t))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	if err := store.New(db, Logger()).CreateSchema(context.Background()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

// NewStore opens a fresh database, seeds the default fixture and returns a
// Store over it.
func NewStore(t testing.TB) *store.Store {
	t.Helper()

	s := store.New(OpenDB(t), Logger())
	Seed(t, s, DefaultFixture(t))
	return s
}

// Seed inserts the fixture rows.
func Seed(t testing.TB, s *store.Store, f Fixture) {
	t.Helper()

	ctx := context.Background()
	for _, u := range f.Users {
		if _, err := s.InsertUser(ctx, s.DB(), store.User{ID: u.ID, Nickname: u.Nickname}); err != nil {
			t.Fatalf("failed to seed user %d: %v", u.ID, err)
		}
	}
}

// SeedPostings inserts postings with explicit ids under feedID.
func SeedPostings(t testing.TB, db bun.IDB, feedID int64, ids ...int64) {
	t.Helper()

	if len(ids) == 0 {
		return
	}

	postings := make([]store.Posting, 0, len(ids))
	for _, id := range ids {
		postings = append(postings, store.Posting{
			ID:        id,
			FeedID:    feedID,
			Thumbnail: "thumb-" + strconv.FormatInt(id, 10),
			CreatedAt: time.Now().UTC(),
		})
	}

	if _, err := db.NewInsert().Model(&postings).Exec(context.Background()); err != nil {
		t.Fatalf("failed to seed postings: %v", err)
	}
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
