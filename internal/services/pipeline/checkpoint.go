package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/models"
)

// Checkpoint persists multi-trade progress so an interrupted run resumes
// where it stopped. Two files per city: the leads collected so far and
// the trades already finished. Both are removed on completion.
type Checkpoint struct {
	dir    string
	slug   string
	logger arbor.ILogger
}

type leadsEnvelope struct {
	Leads []*models.Lead `json:"leads"`
}

// NewCheckpoint creates a checkpoint store for one city in dir
func NewCheckpoint(dir, stadt string, logger arbor.ILogger) *Checkpoint {
	return &Checkpoint{
		dir:    dir,
		slug:   CitySlug(stadt),
		logger: logger,
	}
}

// CitySlug derives the file-name slug of a city: lowercased, umlauts
// transliterated, everything else folded to underscores
func CitySlug(stadt string) string {
	s := strings.ToLower(strings.TrimSpace(stadt))
	s = umlautReplacer.Replace(s)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func (c *Checkpoint) leadsPath() string {
	return filepath.Join(c.dir, fmt.Sprintf(".checkpoint_leads_%s.json", c.slug))
}

func (c *Checkpoint) branchenPath() string {
	return filepath.Join(c.dir, fmt.Sprintf(".checkpoint_branchen_%s.json", c.slug))
}

// SaveLeads writes the accumulated leads
func (c *Checkpoint) SaveLeads(leads []*models.Lead) error {
	data, err := json.MarshalIndent(leadsEnvelope{Leads: leads}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint leads: %w", err)
	}
	if err := os.WriteFile(c.leadsPath(), data, 0644); err != nil {
		return fmt.Errorf("write checkpoint leads: %w", err)
	}
	c.logger.Debug().Int("leads", len(leads)).Str("file", c.leadsPath()).Msg("Checkpoint saved")
	return nil
}

// LoadLeads reads previously checkpointed leads; a missing file yields nil
func (c *Checkpoint) LoadLeads() ([]*models.Lead, error) {
	data, err := os.ReadFile(c.leadsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint leads: %w", err)
	}

	var envelope leadsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse checkpoint leads: %w", err)
	}
	return envelope.Leads, nil
}

// SaveBranchen writes the list of trades already finished
func (c *Checkpoint) SaveBranchen(done []string) error {
	data, err := json.MarshalIndent(done, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint branchen: %w", err)
	}
	if err := os.WriteFile(c.branchenPath(), data, 0644); err != nil {
		return fmt.Errorf("write checkpoint branchen: %w", err)
	}
	return nil
}

// LoadBranchen reads the finished-trade list; a missing file yields nil
func (c *Checkpoint) LoadBranchen() ([]string, error) {
	data, err := os.ReadFile(c.branchenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint branchen: %w", err)
	}

	var done []string
	if err := json.Unmarshal(data, &done); err != nil {
		return nil, fmt.Errorf("parse checkpoint branchen: %w", err)
	}
	return done, nil
}

// Exists reports whether a resumable checkpoint is present
func (c *Checkpoint) Exists() bool {
	_, err := os.Stat(c.leadsPath())
	return err == nil
}

// Clear removes both checkpoint files after a completed run
func (c *Checkpoint) Clear() {
	for _, path := range []string{c.leadsPath(), c.branchenPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn().Err(err).Str("file", path).Msg("Failed to remove checkpoint")
		}
	}
}
