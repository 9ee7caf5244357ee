package storage

import (
	"context"
	"os"
	"testing"
	"time"

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
		{Title: "No link", PriceText: "$90 night", RatingText: models.NoRating, URL: models.NoURL},
		{Title: "Beach condo (updated)", PriceText: "$199 night", RatingText: "4.92 (90 reviews)", URL: "https://www.airbnb.com/rooms/1", Rating: 4.92, ReviewCount: 90},
		{Title: "Brickell loft", PriceText: models.NoPrice, RatingText: models.NoRating, URL: "https://www.airbnb.com/rooms/2"},
	})
}

func TestArchiveRows(t *testing.T) {
	rows := archiveRows(sampleResultSet())

	if len(rows) != 2 {
		t.Fatalf("archiveRows() returned %d rows, want 2", len(rows))
	}
	if rows[0][0] != "https://www.airbnb.com/rooms/1" || rows[0][1] != "Beach condo (updated)" {
		t.Errorf("first row = %v, want the last occurrence of rooms/1", rows[0])
	}
	if rows[1][0] != "https://www.airbnb.com/rooms/2" {
		t.Errorf("second row = %v", rows[1])
	}
	if rows[0][6] != "Miami" || rows[0][9] != 2 {
		t.Errorf("row metadata = %v", rows[0][6:])
	}
	if len(rows[0]) != 11 {
		t.Errorf("row has %d arguments, want 11", len(rows[0]))
	}
}

func TestArchiveRowsEmpty(t *testing.T) {
	if rows := archiveRows(nil); rows != nil {
		t.Errorf("archiveRows(nil) = %v", rows)
	}
	empty := models.NewResultSet(models.SearchRequest{Destination: "Rome"}, time.Now(), nil)
	if rows := archiveRows(empty); len(rows) != 0 {
		t.Errorf("archiveRows(empty) = %v", rows)
	}
}

// TestPostgresStore runs against a real database when LISTINGS_TEST_POSTGRES_URL is set
func TestPostgresStore(t *testing.T) {
	connStr := os.Getenv("LISTINGS_TEST_POSTGRES_URL")
	if connStr == "" {
		t.Skip("LISTINGS_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	store, err := NewPostgresStore(ctx, connStr)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := store.Save(ctx, sampleResultSet()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, sampleResultSet()); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := store.Recent(ctx, "miami", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	titles := map[string]bool{}
	for _, l := range got {
		titles[l.Title] = true
	}
	if !titles["Beach condo (updated)"] || !titles["Brickell loft"] {
		t.Errorf("Recent() = %+v", got)
	}
}
