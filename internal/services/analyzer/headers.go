package analyzer

import (
	"fmt"
	"regexp"
	"strings"
)

type headerRule struct {
	pattern  *regexp.Regexp
	signal   string
	definite bool
}

// oldServerRules match Server header values of long-unmaintained stacks
var oldServerRules = []headerRule{
	{regexp.MustCompile(`(?i)apache/1\.`), "apache_1", true},
	{regexp.MustCompile(`(?i)apache/2\.0`), "apache_2_0", false},
	{regexp.MustCompile(`(?i)apache/2\.2`), "apache_2_2", false},
	{regexp.MustCompile(`(?i)microsoft-iis/[1-6]\.`), "iis_alt", true},
	{regexp.MustCompile(`(?i)microsoft-iis/7\.`), "iis_7", false},
	{regexp.MustCompile(`(?i)nginx/0\.`), "nginx_0", true},
	{regexp.MustCompile(`(?i)nginx/1\.[0-9]\.`), "nginx_1_frueh", false},
	{regexp.MustCompile(`(?i)lighttpd/1\.[0-3]`), "lighttpd_alt", false},
	{regexp.MustCompile(`(?i)zeus`), "zeus", true},
	{regexp.MustCompile(`(?i)netscape`), "netscape", true},
	{regexp.MustCompile(`(?i)oracle-http`), "oracle_http", false},
}

// oldPoweredByRules match X-Powered-By values of end-of-life runtimes
var oldPoweredByRules = []headerRule{
	{regexp.MustCompile(`(?i)php/[1-4]\.`), "php_alt", true},
	{regexp.MustCompile(`(?i)php/5\.[0-3]`), "php_5_frueh", true},
	{regexp.MustCompile(`(?i)php/5\.[4-9]`), "php_5_spaet", false},
	{regexp.MustCompile(`(?i)php/6\.`), "php_6", false},
	{regexp.MustCompile(`(?i)asp\.net[ /]?[1-3]`), "aspnet_alt", false},
	{regexp.MustCompile(`(?i)perl`), "perl", false},
	{regexp.MustCompile(`(?i)coldfusion`), "coldfusion", false},
}

// modernStackPatterns match Server or X-Powered-By values of maintained stacks
var modernStackPatterns = []headerRule{
	{regexp.MustCompile(`(?i)nginx/1\.(1[8-9]|2[0-9])`), "modern_nginx", false},
	{regexp.MustCompile(`(?i)apache/2\.4`), "modern_apache", false},
	{regexp.MustCompile(`(?i)cloudflare`), "modern_cloudflare", false},
	{regexp.MustCompile(`(?i)vercel`), "modern_vercel", false},
	{regexp.MustCompile(`(?i)netlify`), "modern_netlify", false},
	{regexp.MustCompile(`(?i)php/[78]\.`), "modern_php", false},
	{regexp.MustCompile(`(?i)express`), "modern_express", false},
	{regexp.MustCompile(`(?i)next\.js`), "modern_nextjs", false},
	{regexp.MustCompile(`(?i)gunicorn`), "modern_gunicorn", false},
	{regexp.MustCompile(`(?i)uvicorn`), "modern_uvicorn", false},
}

// securityHeaders a maintained site typically sets at least a few of
var securityHeaders = []string{
	"strict-transport-security",
	"content-security-policy",
	"x-content-type-options",
	"x-frame-options",
	"x-xss-protection",
	"referrer-policy",
	"permissions-policy",
}

// cdnHeaders indicate delivery through a current CDN or platform
var cdnHeaders = map[string]string{
	"cf-ray":          "cdn_cloudflare",
	"x-vercel-id":     "cdn_vercel",
	"x-nf-request-id": "cdn_netlify",
}

// AnalyzeHeaders classifies a website from its response headers. Keys must
// be case-folded, as returned by the fetch layer.
func AnalyzeHeaders(headers map[string]string) StageResult {
	server := headers["server"]
	poweredBy := headers["x-powered-by"]
	stack := server + " " + poweredBy

	var signals []string
	definiteOld, probableOld, modern := 0, 0, 0

	for _, rule := range oldServerRules {
		if rule.pattern.MatchString(server) {
			signals = append(signals, "server_"+rule.signal)
			if rule.definite {
				definiteOld++
			} else {
				probableOld++
			}
		}
	}
	for _, rule := range oldPoweredByRules {
		if rule.pattern.MatchString(poweredBy) {
			signals = append(signals, "powered_by_"+rule.signal)
			if rule.definite {
				definiteOld++
			} else {
				probableOld++
			}
		}
	}
	for _, rule := range modernStackPatterns {
		if rule.pattern.MatchString(stack) {
			signals = append(signals, rule.signal)
			modern++
		}
	}

	for name, signal := range cdnHeaders {
		if _, ok := headers[name]; ok {
			signals = append(signals, signal)
			modern++
		}
	}
	for name := range headers {
		if strings.HasPrefix(name, "x-amz-") {
			signals = append(signals, "cdn_amazon")
			modern++
			break
		}
	}

	security := 0
	for _, name := range securityHeaders {
		if _, ok := headers[name]; ok {
			security++
		}
	}
	if security > 0 {
		signals = append(signals, fmt.Sprintf("sicherheitsheader_%d", security))
	}

	if _, ok := headers["cache-control"]; !ok {
		signals = append(signals, "kein_cache_control")
	}
	if strings.Contains(strings.ToLower(headers["pragma"]), "no-cache") {
		signals = append(signals, "pragma_no_cache")
		probableOld++
	}
	if v := headers["x-aspnet-version"]; v != "" && v[0] >= '1' && v[0] <= '3' {
		signals = append(signals, "aspnet_version_alt")
		probableOld++
	}
	if _, ok := headers["x-powered-by-plesk"]; ok {
		signals = append(signals, "plesk_header")
		probableOld++
	}

	switch {
	case definiteOld >= 1:
		return StageResult{Verdict: VerdictDefinitelyOld, Confidence: 0.9, Signals: signals}
	case probableOld >= 2 || (probableOld >= 1 && security == 0):
		return StageResult{Verdict: VerdictProbablyOld, Confidence: 0.7, Signals: signals}
	case probableOld >= 1:
		return StageResult{Verdict: VerdictProbablyOld, Confidence: 0.5, Signals: signals}
	case modern >= 1 && security >= 3:
		return StageResult{Verdict: VerdictProbablyModern, Confidence: 0.8, Signals: signals}
	case modern >= 1:
		return StageResult{Verdict: VerdictProbablyModern, Confidence: 0.6, Signals: signals}
	case security >= 4:
		return StageResult{Verdict: VerdictProbablyModern, Confidence: 0.5, Signals: signals}
	default:
		return StageResult{Verdict: VerdictUnknown, Confidence: 0.3, Signals: signals}
	}
}
