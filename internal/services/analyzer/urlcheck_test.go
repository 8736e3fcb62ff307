package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeURL_BuilderHost(t *testing.T) {
	result := AnalyzeURL("https://baeckerei-schmidt.jimdo.com")

	assert.Equal(t, VerdictBuilder, result.Verdict)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Contains(t, result.Signals, "jimdo_baukasten")
}

func TestAnalyzeURL_OldHostingDefinite(t *testing.T) {
	result := AnalyzeURL("http://www.geocities.com/mueller-sanitaer")

	assert.Equal(t, VerdictDefinitelyOld, result.Verdict)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Contains(t, result.Signals, "hosting_geocities")
}

func TestAnalyzeURL_OldHostingProbable(t *testing.T) {
	result := AnalyzeURL("https://malermeister.bplaced.net")

	assert.Equal(t, VerdictProbablyOld, result.Verdict)
	assert.Equal(t, 0.7, result.Confidence)
}

func TestAnalyzeURL_IPLiteral(t *testing.T) {
	result := AnalyzeURL("http://192.168.10.20/index.html")

	assert.Equal(t, VerdictProbablyOld, result.Verdict)
	assert.Contains(t, result.Signals, "ip_adresse")
}

func TestAnalyzeURL_ModernPlatform(t *testing.T) {
	result := AnalyzeURL("https://dachdecker-berlin.vercel.app")

	assert.Equal(t, VerdictProbablyModern, result.Verdict)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Contains(t, result.Signals, "modern_vercel")
}

func TestAnalyzeURL_InsecureWithSuspiciousPath(t *testing.T) {
	result := AnalyzeURL("http://www.example.de/~mueller/index.htm")

	assert.Equal(t, VerdictProbablyOld, result.Verdict)
	assert.Equal(t, 0.6, result.Confidence)
	assert.Contains(t, result.Signals, "kein_https")
	assert.Contains(t, result.Signals, "pfad_tilde_user")
}

func TestAnalyzeURL_SingleSignalStaysUnknown(t *testing.T) {
	result := AnalyzeURL("http://www.example.de")

	assert.Equal(t, VerdictUnknown, result.Verdict)
	assert.Equal(t, 0.3, result.Confidence)
	assert.Contains(t, result.Signals, "kein_https")
}

func TestAnalyzeURL_CleanURL(t *testing.T) {
	result := AnalyzeURL("https://www.handwerk-mueller.de")

	assert.Equal(t, VerdictUnknown, result.Verdict)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Signals)
}

func TestAnalyzeURL_SchemelessInput(t *testing.T) {
	result := AnalyzeURL("firma-meier.wixsite.com/willkommen")

	assert.Equal(t, VerdictBuilder, result.Verdict)
}
