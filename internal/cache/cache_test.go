package cache

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/pkg/models"
)

func sampleResultSet() *models.ResultSet {
	return models.NewResultSet(models.SearchRequest{
		Destination: "Miami",
		CheckIn:     "2025-03-09",
		CheckOut:    "2025-03-14",
		Guests:      2,
	}, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), []models.Listing{
		{Title: "Beach condo", PriceText: "$210 night", RatingText: "4.91 (88 reviews)", URL: "https://www.airbnb.com/rooms/1", Rating: 4.91, ReviewCount: 88},
		{Title: "Brickell loft", PriceText: models.NoPrice, RatingText: models.NoRating, URL: "https://www.airbnb.com/rooms/2"},
	})
}

func newTestFileStore(t *testing.T) (*FileStore, *time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewFileStore(t.TempDir(), 24*time.Hour, zap.NewNop())
	store.now = func() time.Time { return now }
	return store, &now
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"case folded", "Miami", "miami", true},
		{"trailing space", "Miami", "miami ", true},
		{"inner whitespace", "New  York", "new york", true},
		{"tabs", "\tNew York\n", "NEW YORK", true},
		{"different city", "Miami", "Miami Beach", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			same := Key(tt.a, "2025-03-09") == Key(tt.b, "2025-03-09")
			if same != tt.same {
				t.Errorf("Key(%q) == Key(%q) is %v, want %v", tt.a, tt.b, same, tt.same)
			}
		})
	}

	if Key("Miami", "2025-03-09") == Key("Miami", "2025-03-10") {
		t.Error("keys for different dates should differ")
	}
}

func TestFileName(t *testing.T) {
	name := FileName(Key("São Paulo/../etc", "2025-03-09"))
	if strings.ContainsAny(name, "/\\ ") {
		t.Errorf("FileName() = %q contains unsafe characters", name)
	}
	if !strings.HasPrefix(name, "airbnb_s-o_paulo-etc_2025-03-09_") || !strings.HasSuffix(name, ".json") {
		t.Errorf("FileName() = %q, unexpected shape", name)
	}
	if FileName(Key("São Paulo", "d")) == FileName(Key("Sèo Paulo", "d")) {
		t.Error("distinct keys with the same slug should not share a file")
	}
	if FileName(Key("Miami", "d")) != FileName(Key("Miami", "d")) {
		t.Error("FileName() should be deterministic")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()
	rs := sampleResultSet()

	store.Put(ctx, "Miami", "2025-03-09", rs)

	got, ok := store.Get(ctx, "Miami", "2025-03-09")
	if !ok {
		t.Fatal("Get() miss after Put()")
	}
	if !reflect.DeepEqual(got, rs) {
		t.Errorf("Get() = %+v, want %+v", got, rs)
	}
}

func TestFileStoreNormalizedKeysShareEntry(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	store.Put(ctx, "Miami", "2025-03-09", sampleResultSet())

	if _, ok := store.Get(ctx, "miami ", "2025-03-09"); !ok {
		t.Error(`Get("miami ") missed an entry written for "Miami"`)
	}
	if store.Path("Miami", "2025-03-09") != store.Path("miami ", "2025-03-09") {
		t.Error("normalized destinations should map to the same file")
	}
}

func TestFileStoreExpiry(t *testing.T) {
	store, now := newTestFileStore(t)
	ctx := context.Background()

	store.Put(ctx, "Miami", "2025-03-09", sampleResultSet())

	*now = now.Add(24*time.Hour - time.Minute)
	if _, ok := store.Get(ctx, "Miami", "2025-03-09"); !ok {
		t.Error("entry younger than the TTL should be returned")
	}

	*now = now.Add(2 * time.Minute)
	if _, ok := store.Get(ctx, "Miami", "2025-03-09"); ok {
		t.Error("entry older than the TTL should be treated as absent")
	}
	if _, err := os.Stat(store.Path("Miami", "2025-03-09")); err != nil {
		t.Errorf("stale entry should remain on disk: %v", err)
	}

	store.Put(ctx, "Miami", "2025-03-09", sampleResultSet())
	if _, ok := store.Get(ctx, "Miami", "2025-03-09"); !ok {
		t.Error("overwritten entry should be fresh again")
	}
}

func TestFileStoreCorruptionIsMiss(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "{not json"},
		{"empty", ""},
		{"missing result", `{"written_at":"2025-03-01T11:00:00Z"}`},
		{"missing timestamp", `{"result":{"metadata":{},"listings":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestFileStore(t)
			path := store.Path("Miami", "2025-03-09")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to seed cache file: %v", err)
			}
			if rs, ok := store.Get(context.Background(), "Miami", "2025-03-09"); ok {
				t.Errorf("Get() = %+v, want miss", rs)
			}
		})
	}
}

func TestFileStoreMissingEntry(t *testing.T) {
	store, _ := newTestFileStore(t)
	if _, ok := store.Get(context.Background(), "Nowhere", "2025-01-01"); ok {
		t.Error("Get() on empty cache should miss")
	}
}

func TestFileStorePutFailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create blocker file: %v", err)
	}

	store := NewFileStore(filepath.Join(blocker, "cache"), time.Hour, zap.NewNop())
	store.Put(context.Background(), "Miami", "2025-03-09", sampleResultSet())

	if _, ok := store.Get(context.Background(), "Miami", "2025-03-09"); ok {
		t.Error("Get() should miss when the write could not happen")
	}
}

func TestRedisStoreUnavailableIsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisStore(client, time.Hour, zap.NewNop())
	ctx := context.Background()

	store.Put(ctx, "Miami", "2025-03-09", sampleResultSet())
	if _, ok := store.Get(ctx, "Miami", "2025-03-09"); ok {
		t.Error("Get() should miss when Redis is unreachable")
	}
}

// TestRedisStore runs against a real server when LISTINGS_TEST_REDIS_ADDR is set
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("LISTINGS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LISTINGS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	store := NewRedisStore(client, 24*time.Hour, zap.NewNop())
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	const destination = "Redis Test Harbour"
	defer client.Del(ctx, store.key(destination, "2025-03-09"))

	want := sampleResultSet()
	store.Put(ctx, destination, "2025-03-09", want)

	got, ok := store.Get(ctx, " redis test harbour ", "2025-03-09")
	if !ok {
		t.Fatal("Get() missed a fresh entry")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	ttl, err := client.TTL(ctx, store.key(destination, "2025-03-09")).Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl != -1 {
		t.Errorf("key TTL = %v, want no expiry", ttl)
	}

	now = now.Add(25 * time.Hour)
	if _, ok := store.Get(ctx, destination, "2025-03-09"); ok {
		t.Error("Get() served an entry older than the TTL")
	}
}

func TestDecodeEntry(t *testing.T) {
	written := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	data, err := encodeEntry(sampleResultSet(), written)
	if err != nil {
		t.Fatalf("encodeEntry() error = %v", err)
	}

	if _, err := decodeEntry(data, written.Add(time.Hour), 2*time.Hour); err != nil {
		t.Errorf("decodeEntry() fresh error = %v", err)
	}
	if _, err := decodeEntry(data, written.Add(3*time.Hour), 2*time.Hour); err != errStale {
		t.Errorf("decodeEntry() stale error = %v, want errStale", err)
	}
}
