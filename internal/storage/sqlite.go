package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shelfwatch/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	cacheExpiry  time.Time
	db           *sql.DB
	profileCache map[string]*model.RetailerMatchProfile
	dbPath       string
	cacheMutex   sync.RWMutex
}

// queryable abstracts *sql.DB and *sql.Tx for read helpers.
type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:           db,
		dbPath:       dbPath,
		profileCache: make(map[string]*model.RetailerMatchProfile),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

const profileCacheTTL = 5 * time.Minute

func (s *SQLiteStorage) getCachedProfile(retailer string) *model.RetailerMatchProfile {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}

	if p, ok := s.profileCache[retailer]; ok {
		return cloneProfile(p)
	}
	return nil
}

func (s *SQLiteStorage) cacheProfile(profile *model.RetailerMatchProfile) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	s.profileCache[profile.Retailer] = cloneProfile(profile)
	s.cacheExpiry = time.Now().Add(profileCacheTTL)
}

// cloneProfile copies the method counts too, so callers mutating a returned
// profile can never reach the cached one.
func cloneProfile(p *model.RetailerMatchProfile) *model.RetailerMatchProfile {
	clone := *p
	clone.MethodCounts = make(map[model.MatchMethod]int, len(p.MethodCounts))
	for k, v := range p.MethodCounts {
		clone.MethodCounts[k] = v
	}
	return &clone
}

func (s *SQLiteStorage) invalidateProfileCache(retailer string) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	delete(s.profileCache, retailer)
}
