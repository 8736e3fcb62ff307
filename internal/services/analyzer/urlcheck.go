package analyzer

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/prospect/internal/models"
)

// oldHostsDefinite are free-hosting providers of the late 90s and early
// 2000s. A site still living there has not been touched in a long time.
var oldHostsDefinite = []string{
	"geocities",
	"tripod",
	"angelfire",
	"fortunecity",
	"homestead",
	"beepworld",
	"funpic",
	"cwsurf",
	"home.t-online",
	".de.vu",
	".de.to",
}

// oldHostsProbable are hosts that skew old but still carry some live sites
var oldHostsProbable = []string{
	"bplaced",
	".co.de",
	"ohost",
	"arcor",
}

// builderHosts map a website-builder host fragment to its signal label
var builderHosts = map[string]string{
	"jimdo":         "jimdo",
	"wix":           "wix",
	"weebly":        "weebly",
	"squarespace":   "squarespace",
	"webnode":       "webnode",
	"site123":       "site123",
	"strikingly":    "strikingly",
	"wordpress.com": "wordpress_com",
	"blogspot":      "blogspot",
	"tumblr":        "tumblr",
	"one.com":       "one_com",
}

// modernHosts map current deployment platforms to their signal label
var modernHosts = map[string]string{
	"vercel.app":    "modern_vercel",
	"netlify.app":   "modern_netlify",
	"github.io":     "modern_github_pages",
	"pages.dev":     "modern_cloudflare_pages",
	"herokuapp":     "modern_heroku",
	"azurewebsites": "modern_azure",
	"web.app":       "modern_firebase",
	"firebaseapp":   "modern_firebase",
}

// suspiciousPaths match URL shapes typical for hand-maintained legacy sites
var suspiciousPaths = []struct {
	pattern *regexp.Regexp
	signal  string
}{
	{regexp.MustCompile(`/~\w+`), "pfad_tilde_user"},
	{regexp.MustCompile(`/home/`), "pfad_home"},
	{regexp.MustCompile(`/users?/`), "pfad_users"},
	{regexp.MustCompile(`/members?/`), "pfad_members"},
	{regexp.MustCompile(`\.htm$`), "endung_htm"},
	{regexp.MustCompile(`/cgi-bin/`), "pfad_cgi_bin"},
	{regexp.MustCompile(`\.php3$`), "endung_php3"},
	{regexp.MustCompile(`\.asp$`), "endung_asp"},
	{regexp.MustCompile(`/default\.aspx`), "pfad_default_aspx"},
}

var ipHost = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// AnalyzeURL classifies a website from its URL alone, without any network
// traffic. This is the cheapest stage and always runs first.
func AnalyzeURL(rawURL string) StageResult {
	norm := models.NormalizeWebsiteURL(rawURL)
	u, err := url.Parse(norm)
	if err != nil || u.Hostname() == "" {
		return StageResult{Verdict: VerdictUnknown, Confidence: 0.0}
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	for fragment, label := range builderHosts {
		if strings.Contains(host, fragment) {
			return StageResult{
				Verdict:    VerdictBuilder,
				Confidence: 0.95,
				Signals:    []string{label + "_baukasten"},
			}
		}
	}

	for _, fragment := range oldHostsDefinite {
		if strings.Contains(host, fragment) {
			return StageResult{
				Verdict:    VerdictDefinitelyOld,
				Confidence: 0.9,
				Signals:    []string{"hosting_" + signalKey(fragment)},
			}
		}
	}

	for fragment, label := range modernHosts {
		if strings.Contains(host, fragment) {
			return StageResult{
				Verdict:    VerdictProbablyModern,
				Confidence: 0.8,
				Signals:    []string{label},
			}
		}
	}

	for _, fragment := range oldHostsProbable {
		if strings.Contains(host, fragment) {
			return StageResult{
				Verdict:    VerdictProbablyOld,
				Confidence: 0.7,
				Signals:    []string{"hosting_" + signalKey(fragment)},
			}
		}
	}
	if ipHost.MatchString(host) {
		return StageResult{
			Verdict:    VerdictProbablyOld,
			Confidence: 0.7,
			Signals:    []string{"ip_adresse"},
		}
	}

	var signals []string
	insecure := u.Scheme == "http"
	if insecure {
		signals = append(signals, "kein_https")
	}
	for _, sp := range suspiciousPaths {
		if sp.pattern.MatchString(path) {
			signals = append(signals, sp.signal)
		}
	}

	if insecure && len(signals) >= 2 {
		return StageResult{Verdict: VerdictProbablyOld, Confidence: 0.6, Signals: signals}
	}
	if len(signals) > 0 {
		return StageResult{Verdict: VerdictUnknown, Confidence: 0.3, Signals: signals}
	}
	return StageResult{Verdict: VerdictUnknown, Confidence: 0.0}
}

func signalKey(fragment string) string {
	key := strings.Trim(fragment, ".")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
