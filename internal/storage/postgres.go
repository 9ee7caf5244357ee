// Package storage archives fetched listings in PostgreSQL.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/williampepple1/listings-scraper/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	id           BIGSERIAL PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	price_text   TEXT NOT NULL,
	rating_text  TEXT NOT NULL,
	rating       DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	destination  TEXT NOT NULL,
	checkin      TEXT NOT NULL,
	checkout     TEXT NOT NULL,
	guests       INTEGER NOT NULL,
	scraped_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const upsertListing = `
INSERT INTO listings (url, title, price_text, rating_text, rating, review_count, destination, checkin, checkout, guests, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	price_text = EXCLUDED.price_text,
	rating_text = EXCLUDED.rating_text,
	rating = EXCLUDED.rating,
	review_count = EXCLUDED.review_count,
	destination = EXCLUDED.destination,
	checkin = EXCLUDED.checkin,
	checkout = EXCLUDED.checkout,
	guests = EXCLUDED.guests,
	scraped_at = EXCLUDED.scraped_at,
	updated_at = NOW()`

// PostgresStore handles interactions with the PostgreSQL database.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// Migrate creates the listings table if it does not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Save upserts every addressable listing of rs within a single transaction.
// Listings without a URL cannot be keyed and are skipped.
func (s *PostgresStore) Save(ctx context.Context, rs *models.ResultSet) error {
	rows := archiveRows(rs)
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsertListing, row...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert listings: %w", err)
	}
	return tx.Commit(ctx)
}

// ArchivedListing is a listing as read back from the archive
type ArchivedListing struct {
	models.Listing
	Destination string    `json:"destination"`
	CheckIn     string    `json:"checkin"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Recent returns the most recently scraped listings for a destination
func (s *PostgresStore) Recent(ctx context.Context, destination string, limit int) ([]ArchivedListing, error) {
	rows, err := s.db.Query(ctx,
		`SELECT url, title, price_text, rating_text, rating, review_count, destination, checkin, scraped_at
		 FROM listings WHERE lower(destination) = lower($1)
		 ORDER BY scraped_at DESC LIMIT $2`,
		destination, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ArchivedListing, error) {
		var a ArchivedListing
		err := row.Scan(&a.URL, &a.Title, &a.PriceText, &a.RatingText, &a.Rating, &a.ReviewCount,
			&a.Destination, &a.CheckIn, &a.ScrapedAt)
		return a, err
	})
}

// archiveRows returns the upsert arguments for each listing that has a URL,
// keeping the last occurrence of a repeated URL
func archiveRows(rs *models.ResultSet) [][]any {
	if rs == nil {
		return nil
	}
	m := rs.Metadata
	position := make(map[string]int, len(rs.Listings))
	var rows [][]any
	for _, l := range rs.Listings {
		if l.URL == "" || l.URL == models.NoURL {
			continue
		}
		row := []any{l.URL, l.Title, l.PriceText, l.RatingText, l.Rating, l.ReviewCount,
			m.Destination, m.CheckIn, m.CheckOut, m.Guests, m.ScrapeTime}
		if i, ok := position[l.URL]; ok {
			rows[i] = row
			continue
		}
		position[l.URL] = len(rows)
		rows = append(rows, row)
	}
	return rows
}
