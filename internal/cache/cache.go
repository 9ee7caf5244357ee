// Package cache persists fetched result sets keyed by destination and date.
//
// Entries older than the configured TTL are treated as absent but are left in
// place; a later Put for the same key overwrites them. Unreadable entries are
// misses, and write failures are logged rather than returned, so the cache can
// never fail a fetch.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/williampepple1/listings-scraper/pkg/models"
)

// Store is a time-bounded cache of result sets
type Store interface {
	Get(ctx context.Context, destination, date string) (*models.ResultSet, bool)
	Put(ctx context.Context, destination, date string, rs *models.ResultSet)
}

// Key returns the normalized cache key for a search.
// Destinations are case-folded and their whitespace collapsed, so "Miami"
// and "miami " address the same entry.
func Key(destination, date string) string {
	dest := strings.Join(strings.Fields(strings.ToLower(destination)), " ")
	return dest + "|" + strings.TrimSpace(date)
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_-]+`)

// FileName derives a stable, filesystem-safe name from a normalized key.
// The hash suffix keeps distinct keys apart after sanitizing.
func FileName(key string) string {
	dest, date, _ := strings.Cut(key, "|")
	slug := unsafeName.ReplaceAllString(strings.ReplaceAll(dest, " ", "_"), "-")
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("airbnb_%s_%s_%s.json", slug, unsafeName.ReplaceAllString(date, "-"), hex.EncodeToString(sum[:])[:12])
}

// entry is the persisted form of a cached result set
type entry struct {
	WrittenAt time.Time         `json:"written_at"`
	Result    *models.ResultSet `json:"result"`
}

func encodeEntry(rs *models.ResultSet, now time.Time) ([]byte, error) {
	return json.Marshal(entry{WrittenAt: now, Result: rs})
}

// decodeEntry returns the result set if the payload is well formed and fresh
func decodeEntry(data []byte, now time.Time, ttl time.Duration) (*models.ResultSet, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	if e.Result == nil || e.WrittenAt.IsZero() {
		return nil, fmt.Errorf("decode entry: %w", errIncomplete)
	}
	if now.Sub(e.WrittenAt) > ttl {
		return nil, errStale
	}
	return e.Result, nil
}

var (
	errStale      = errors.New("entry is older than ttl")
	errIncomplete = errors.New("entry is incomplete")
)
