package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/pkg/models"
)

// FileStore keeps one JSON file per search under Dir
type FileStore struct {
	Dir    string
	TTL    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewFileStore creates a file-backed cache. The directory is created lazily.
func NewFileStore(dir string, ttl time.Duration, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		Dir:    dir,
		TTL:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the file a search is cached in
func (s *FileStore) Path(destination, date string) string {
	return filepath.Join(s.Dir, FileName(Key(destination, date)))
}

// Get returns a fresh cached result set, or false on miss, expiry or corruption
func (s *FileStore) Get(_ context.Context, destination, date string) (*models.ResultSet, bool) {
	path := s.Path(destination, date)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cache read failed", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}

	rs, err := decodeEntry(data, s.now(), s.TTL)
	if err != nil {
		if errors.Is(err, errStale) {
			s.logger.Debug("cache entry stale", zap.String("destination", destination), zap.String("date", date))
		} else {
			s.logger.Warn("invalid cache file", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}

	s.logger.Info("using cached data", zap.String("destination", destination), zap.String("date", date))
	return rs, true
}

// Put overwrites the entry for a search. Failures are logged and dropped.
func (s *FileStore) Put(_ context.Context, destination, date string, rs *models.ResultSet) {
	path := s.Path(destination, date)
	if err := s.write(path, rs); err != nil {
		s.logger.Warn("cache write failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Info("saved data to cache", zap.String("destination", destination), zap.String("date", date))
}

// write replaces the file atomically so readers never see a partial entry
func (s *FileStore) write(path string, rs *models.ResultSet) error {
	data, err := encodeEntry(rs, s.now())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
