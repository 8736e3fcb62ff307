package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/models"
)

func TestCitySlug(t *testing.T) {
	assert.Equal(t, "dortmund", CitySlug("Dortmund"))
	assert.Equal(t, "muelheim_an_der_ruhr", CitySlug("Mülheim an der Ruhr"))
	assert.Equal(t, "frankfurt_main", CitySlug("Frankfurt (Main)"))
	assert.Equal(t, "koeln", CitySlug(" Köln "))
}

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cp := NewCheckpoint(dir, "Mülheim an der Ruhr", common.GetLogger())

	assert.False(t, cp.Exists())

	loaded, err := cp.LoadLeads()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	leads := []*models.Lead{
		lead("Friseur Mia", "0201 556677", "Limbecker Str.", "5", "45127"),
		lead("Bäckerei Krause", "0201 998877", "", "", ""),
	}
	require.NoError(t, cp.SaveLeads(leads))
	require.NoError(t, cp.SaveBranchen([]string{"Friseur", "Bäcker"}))

	assert.True(t, cp.Exists())
	assert.FileExists(t, filepath.Join(dir, ".checkpoint_leads_muelheim_an_der_ruhr.json"))
	assert.FileExists(t, filepath.Join(dir, ".checkpoint_branchen_muelheim_an_der_ruhr.json"))

	loaded, err = cp.LoadLeads()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Friseur Mia", loaded[0].Firmenname)
	assert.Equal(t, "0201 556677", loaded[0].Telefon)
	assert.Equal(t, "45127", loaded[0].Adresse.PLZ)

	done, err := cp.LoadBranchen()
	require.NoError(t, err)
	assert.Equal(t, []string{"Friseur", "Bäcker"}, done)

	cp.Clear()
	assert.False(t, cp.Exists())
	done, err = cp.LoadBranchen()
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestCheckpointEnvelopeShape(t *testing.T) {
	dir := t.TempDir()
	cp := NewCheckpoint(dir, "Essen", common.GetLogger())

	require.NoError(t, cp.SaveLeads([]*models.Lead{lead("Friseur Mia", "", "", "", "")}))

	data, err := os.ReadFile(filepath.Join(dir, ".checkpoint_leads_essen.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"leads"`)
	assert.Contains(t, string(data), `"Friseur Mia"`)
}
