package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeHeaders_DefinitelyOldServer(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"server": "Apache/1.3.42 (Unix)",
	})

	assert.Equal(t, VerdictDefinitelyOld, result.Verdict)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Contains(t, result.Signals, "server_apache_1")
}

func TestAnalyzeHeaders_OldPHPDefinite(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"server":       "Apache/2.4.52",
		"x-powered-by": "PHP/5.2.17",
	})

	assert.Equal(t, VerdictDefinitelyOld, result.Verdict)
	assert.Contains(t, result.Signals, "powered_by_php_5_frueh")
}

func TestAnalyzeHeaders_ProbableOldWithoutSecurity(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"server": "Apache/2.2.34",
	})

	assert.Equal(t, VerdictProbablyOld, result.Verdict)
	assert.Equal(t, 0.7, result.Confidence)
}

func TestAnalyzeHeaders_ProbableOldWithSecurityHeaders(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"server":                 "Apache/2.2.34",
		"x-content-type-options": "nosniff",
	})

	assert.Equal(t, VerdictProbablyOld, result.Verdict)
	assert.Equal(t, 0.5, result.Confidence)
}

func TestAnalyzeHeaders_ModernStackWithSecurity(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"server":                    "nginx/1.24.0",
		"strict-transport-security": "max-age=31536000",
		"content-security-policy":   "default-src 'self'",
		"x-frame-options":           "DENY",
	})

	assert.Equal(t, VerdictProbablyModern, result.Verdict)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Contains(t, result.Signals, "modern_nginx")
	assert.Contains(t, result.Signals, "sicherheitsheader_3")
}

// A current server version alone is weak evidence: without any security
// headers the site earns only a low-confidence modern verdict.
func TestAnalyzeHeaders_ModernStackWithoutSecurity(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"server": "nginx/1.24.0",
	})

	assert.Equal(t, VerdictProbablyModern, result.Verdict)
	assert.Equal(t, 0.6, result.Confidence)
}

func TestAnalyzeHeaders_EarlyNginxIsOld(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"server": "nginx/1.4.6 (Ubuntu)",
	})

	assert.Equal(t, VerdictProbablyOld, result.Verdict)
	assert.Contains(t, result.Signals, "server_nginx_1_frueh")
}

func TestAnalyzeHeaders_CDNCountsAsModern(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"cf-ray": "8a1b2c3d4e5f-FRA",
	})

	assert.Equal(t, VerdictProbablyModern, result.Verdict)
	assert.Contains(t, result.Signals, "cdn_cloudflare")
}

func TestAnalyzeHeaders_SecurityHeadersAloneLeanModern(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"strict-transport-security": "max-age=31536000",
		"content-security-policy":   "default-src 'self'",
		"x-content-type-options":    "nosniff",
		"referrer-policy":           "no-referrer",
	})

	assert.Equal(t, VerdictProbablyModern, result.Verdict)
	assert.Equal(t, 0.5, result.Confidence)
}

func TestAnalyzeHeaders_NoEvidence(t *testing.T) {
	result := AnalyzeHeaders(map[string]string{
		"content-type":  "text/html",
		"cache-control": "max-age=3600",
	})

	assert.Equal(t, VerdictUnknown, result.Verdict)
	assert.Equal(t, 0.3, result.Confidence)
}
