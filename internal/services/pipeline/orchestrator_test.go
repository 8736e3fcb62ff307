package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
	"github.com/ternarybob/prospect/internal/services/ratelimit"
)

type stubDirectory struct {
	leads []*models.Lead
	pages int
	err   error
}

func (s *stubDirectory) ScrapeLeads(ctx context.Context, branche, stadt string, maxLeads, maxPages int) ([]*models.Lead, int, error) {
	return s.leads, s.pages, s.err
}

type stubClassifier struct {
	status models.WebsiteStatus
	err    error
	calls  int
}

func (s *stubClassifier) Check(ctx context.Context, websiteURL string) (models.WebsiteAssessment, error) {
	s.calls++
	if s.err != nil {
		return models.WebsiteAssessment{}, s.err
	}
	return models.WebsiteAssessment{Status: s.status, Confidence: 0.8}, nil
}

func searchConfig() common.SearchConfig {
	return common.SearchConfig{
		MaxLeads:   100,
		MaxPages:   5,
		Sources:    "directory",
		CheckDepth: "normal",
	}
}

func newTestOrchestrator(dir DirectoryScraper, classifier SiteClassifier) *Orchestrator {
	filter := NewFilter(common.FilterConfig{
		IncludeNoWebsite:      true,
		IncludeOldWebsite:     true,
		IncludeUnknownWebsite: true,
	}, common.GetLogger())
	return NewOrchestrator(dir, nil, classifier, filter, searchConfig(), common.GetLogger())
}

func TestRunHappyPath(t *testing.T) {
	withSite := lead("Sanitär Schmidt", "0231 12345", "Hauptstr.", "12", "44135")
	withSite.WebsiteURL = "https://www.sanitaer-schmidt.de"
	noSite := lead("Bäckerei Krause", "0231 777777", "", "", "44137")

	classifier := &stubClassifier{status: models.WebsiteStatusOld}
	o := newTestOrchestrator(&stubDirectory{leads: []*models.Lead{withSite, noSite}, pages: 2}, classifier)

	var milestones []int
	o.OnProgress(func(message string, current, total int) {
		milestones = append(milestones, current)
	})

	result, stats, err := o.Run(context.Background(), "Klempner", "Dortmund")
	require.NoError(t, err)

	assert.Len(t, result.Leads, 2)
	assert.Equal(t, 2, result.TotalGefunden)
	assert.Equal(t, 2, result.SeitenGescraped)
	assert.False(t, result.Partial)

	assert.Equal(t, 2, stats.Directory.PagesScraped)
	assert.Equal(t, 1, stats.Websites.WebsitesChecked)
	assert.Equal(t, 1, stats.Websites.WebsitesOld)
	assert.Equal(t, 1, stats.Websites.NoWebsite)
	assert.Equal(t, 1, classifier.calls)

	assert.Equal(t, models.WebsiteStatusOld, withSite.Website.Status)
	assert.Equal(t, models.WebsiteStatusNone, noSite.Website.Status)

	assert.Equal(t, []int{0, 30, 80, 95, 100}, milestones)
}

func TestRunNoListings(t *testing.T) {
	o := newTestOrchestrator(&stubDirectory{}, &stubClassifier{})

	_, _, err := o.Run(context.Background(), "Klempner", "Dortmund")
	assert.ErrorIs(t, err, ErrNoListings)
}

func TestRunSessionLimitDuringScrape(t *testing.T) {
	partial := lead("Sanitär Schmidt", "0231 12345", "", "", "")
	o := newTestOrchestrator(&stubDirectory{
		leads: []*models.Lead{partial},
		pages: 1,
		err:   ratelimit.ErrSessionLimit,
	}, &stubClassifier{status: models.WebsiteStatusOld})

	result, stats, err := o.Run(context.Background(), "Klempner", "Dortmund")
	require.NoError(t, err)

	assert.True(t, result.Partial)
	assert.True(t, stats.Partial)
	assert.Len(t, result.Leads, 1)
	assert.NotEmpty(t, result.Fehler)
}

func TestRunSessionLimitDuringWebsiteChecks(t *testing.T) {
	withSite := lead("Sanitär Schmidt", "0231 12345", "", "", "")
	withSite.WebsiteURL = "https://www.sanitaer-schmidt.de"

	o := newTestOrchestrator(
		&stubDirectory{leads: []*models.Lead{withSite}, pages: 1},
		&stubClassifier{err: ratelimit.ErrSessionLimit},
	)

	result, _, err := o.Run(context.Background(), "Klempner", "Dortmund")
	require.NoError(t, err)

	assert.True(t, result.Partial)
	assert.Equal(t, models.WebsiteStatusUnchecked, withSite.Website.Status)
}

func TestRunClassifierFailureDegrades(t *testing.T) {
	withSite := lead("Sanitär Schmidt", "0231 12345", "", "", "")
	withSite.WebsiteURL = "https://www.sanitaer-schmidt.de"

	o := newTestOrchestrator(
		&stubDirectory{leads: []*models.Lead{withSite}, pages: 1},
		&stubClassifier{err: assert.AnError},
	)

	result, stats, err := o.Run(context.Background(), "Klempner", "Dortmund")
	require.NoError(t, err)

	assert.False(t, result.Partial)
	assert.Equal(t, models.WebsiteStatusUnknown, withSite.Website.Status)
	assert.Equal(t, 1, stats.Websites.WebsitesUnknown)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(&stubDirectory{leads: []*models.Lead{lead("X", "", "", "", "")}, pages: 1}, &stubClassifier{})
	_, _, err := o.Run(ctx, "Klempner", "Dortmund")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMultiRunCheckpointsAndResumes(t *testing.T) {
	dir := t.TempDir()

	leadA := lead("Friseur Mia", "0201 556677", "", "", "45127")
	o := newTestOrchestrator(&stubDirectory{leads: []*models.Lead{leadA}, pages: 1}, &stubClassifier{status: models.WebsiteStatusUnknown})

	cp := NewCheckpoint(dir, "Essen", common.GetLogger())
	m := NewMultiRun(o, cp, common.GetLogger())

	result, _, err := m.Run(context.Background(), []string{"Friseur"}, "Essen")
	require.NoError(t, err)
	assert.Len(t, result.Leads, 1)
	assert.False(t, cp.Exists(), "checkpoint should be cleared after completion")
}

func TestMultiRunSessionLimitKeepsCheckpoint(t *testing.T) {
	dir := t.TempDir()

	leadA := lead("Friseur Mia", "0201 556677", "", "", "45127")
	o := newTestOrchestrator(&stubDirectory{
		leads: []*models.Lead{leadA},
		pages: 1,
		err:   ratelimit.ErrSessionLimit,
	}, &stubClassifier{})

	cp := NewCheckpoint(dir, "Essen", common.GetLogger())
	m := NewMultiRun(o, cp, common.GetLogger())

	result, _, err := m.Run(context.Background(), []string{"Friseur", "Bäcker"}, "Essen")
	assert.ErrorIs(t, err, ratelimit.ErrSessionLimit)
	require.NotNil(t, result)
	assert.True(t, result.Partial)
	assert.Len(t, result.Leads, 1)
	assert.True(t, cp.Exists(), "checkpoint should survive the session limit")

	done, loadErr := cp.LoadBranchen()
	require.NoError(t, loadErr)
	assert.NotContains(t, done, "Friseur")
}
