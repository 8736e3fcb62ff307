package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prospect/internal/common"
)

func TestColumnPresets(t *testing.T) {
	assert.Len(t, MinimalColumns, 9)
	assert.Len(t, DefaultColumns, 17)
	assert.Len(t, FullColumns, 24)

	assert.Equal(t, MinimalColumns, Columns("minimal"))
	assert.Equal(t, FullColumns, Columns("full"))
	assert.Equal(t, DefaultColumns, Columns("default"))
	assert.Equal(t, DefaultColumns, Columns(""))
}

func TestCSVExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	exporter := NewCSVExporter("minimal", common.GetLogger())
	result := sampleResult()

	require.NoError(t, exporter.Export(result.Leads, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(raw), "\xEF\xBB\xBF"), "expected UTF-8 BOM")

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), "\xEF\xBB\xBF")))
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3) // header + 2 leads
	assert.Equal(t, MinimalColumns, rows[0])

	first := rows[1]
	assert.Equal(t, "Sanitär Schmidt GmbH", first[0])
	assert.Equal(t, "Klempner", first[1])
	assert.Equal(t, "0231 12345", first[2])
	assert.Equal(t, "alt", first[5])
	assert.Equal(t, "44135", first[6])
	assert.Equal(t, "Dortmund", first[7])

	second := rows[2]
	assert.Equal(t, "Bäckerei Krause", second[0])
	assert.Equal(t, "keine", second[5])
	assert.Empty(t, second[2])
}

func TestCSVFullColumnsSignalCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	exporter := NewCSVExporter("full", common.GetLogger())

	result := sampleResult()
	result.Leads[0].Website.Signals = []string{"a", "b", "c", "d", "e", "f", "g"}

	require.NoError(t, exporter.Export(result.Leads[:1], path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), "\xEF\xBB\xBF")))
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	signaleIdx := -1
	for i, col := range rows[0] {
		if col == "website_signale" {
			signaleIdx = i
		}
	}
	require.GreaterOrEqual(t, signaleIdx, 0)
	assert.Equal(t, "a; b; c; d; e", rows[1][signaleIdx])
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// An odd limit lands mid-umlaut without the boundary backoff.
	s := strings.Repeat("ä", 10)
	cut := truncate(s, 7)

	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, strings.Repeat("ä", 3), cut)

	assert.Equal(t, "abc", truncate("abc", 7))
}

func TestFormatOpeningHoursOrder(t *testing.T) {
	hours := map[string]string{
		"Samstag": "09:00 - 12:00",
		"Montag":  "08:00 - 17:00",
	}
	assert.Equal(t, "Montag: 08:00 - 17:00; Samstag: 09:00 - 12:00", formatOpeningHours(hours))
	assert.Empty(t, formatOpeningHours(nil))
}
