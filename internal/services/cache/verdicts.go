package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
)

// Entry is one cached website verdict keyed by registrable domain
type Entry struct {
	Domain     string `badgerhold:"key"`
	Assessment models.WebsiteAssessment
	StoredAt   time.Time
}

// VerdictStore persists website-age verdicts across runs so repeat
// encounters of the same domain skip the probe cascade
type VerdictStore struct {
	store  *badgerhold.Store
	ttl    time.Duration
	logger arbor.ILogger
}

// Open creates or opens the verdict store at the configured path
func Open(cfg common.CacheConfig, logger arbor.ILogger) (*VerdictStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil // quiet badger's own logger

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open verdict cache: %w", err)
	}

	logger.Debug().Str("path", cfg.Path).Dur("ttl", cfg.TTL).Msg("Verdict cache opened")
	return &VerdictStore{
		store:  store,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// Lookup returns the cached verdict for a domain when present and fresh
func (s *VerdictStore) Lookup(domain string) (*models.WebsiteAssessment, bool) {
	var entry Entry
	err := s.store.Get(domain, &entry)
	if err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			s.logger.Warn().Err(err).Str("domain", domain).Msg("Verdict cache read failed")
		}
		return nil, false
	}

	if s.ttl > 0 && time.Since(entry.StoredAt) > s.ttl {
		// Stale verdicts are dropped rather than served.
		if err := s.store.Delete(domain, Entry{}); err != nil {
			s.logger.Debug().Err(err).Str("domain", domain).Msg("Failed to evict stale verdict")
		}
		return nil, false
	}
	return &entry.Assessment, true
}

// Store writes a verdict, replacing any previous entry for the domain
func (s *VerdictStore) Store(domain string, assessment models.WebsiteAssessment) error {
	entry := Entry{
		Domain:     domain,
		Assessment: assessment,
		StoredAt:   time.Now(),
	}
	if err := s.store.Upsert(domain, entry); err != nil {
		return fmt.Errorf("store verdict for %s: %w", domain, err)
	}
	return nil
}

// Close closes the underlying store
func (s *VerdictStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
