package analyzer

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/models"
)

// CheckDepth selects how far the cascade may escalate
type CheckDepth string

const (
	DepthFast     CheckDepth = "fast"     // URL heuristic only, no network traffic
	DepthNormal   CheckDepth = "normal"   // escalate to HEAD, then HTML when undecided
	DepthThorough CheckDepth = "thorough" // always run all three stages
)

// VerdictCache is the optional cross-run verdict store consulted by domain
type VerdictCache interface {
	Lookup(domain string) (*models.WebsiteAssessment, bool)
	Store(domain string, assessment models.WebsiteAssessment) error
}

// Classifier runs the three-stage age cascade: URL heuristic, header probe,
// HTML scan. Each stage only runs when the previous ones stay undecided,
// except in thorough mode.
type Classifier struct {
	fetcher interfaces.Fetcher
	cache   VerdictCache
	depth   CheckDepth
	logger  arbor.ILogger
}

// NewClassifier creates a classifier. cache may be nil.
func NewClassifier(fetcher interfaces.Fetcher, cache VerdictCache, depth CheckDepth, logger arbor.ILogger) *Classifier {
	return &Classifier{
		fetcher: fetcher,
		cache:   cache,
		depth:   depth,
		logger:  logger,
	}
}

// Check classifies the website behind websiteURL. The returned error is
// non-nil only for cancellation and the stealth session limit; probe
// failures degrade into the assessment instead.
func (c *Classifier) Check(ctx context.Context, websiteURL string) (models.WebsiteAssessment, error) {
	start := time.Now()
	domain := domainOf(websiteURL)

	if c.cache != nil && domain != "" {
		if cached, ok := c.cache.Lookup(domain); ok {
			c.logger.Debug().Str("domain", domain).Str("status", string(cached.Status)).Msg("Verdict cache hit")
			result := *cached
			result.CheckMethods = append([]string{"cache"}, result.CheckMethods...)
			return result, nil
		}
	}

	assessment := models.WebsiteAssessment{Status: models.WebsiteStatusUnknown}
	urlRes := AnalyzeURL(websiteURL)
	assessment.CheckMethods = append(assessment.CheckMethods, "url_heuristic")
	assessment.Signals = appendPrefixed(assessment.Signals, "url:", urlRes.Signals)

	// Definite URL verdicts short-circuit the cascade without any traffic.
	if urlRes.Verdict == VerdictDefinitelyOld || urlRes.Verdict == VerdictBuilder {
		assessment.Status = models.WebsiteStatusOld
		assessment.Confidence = urlRes.Confidence
		return c.finish(domain, assessment, start), nil
	}

	if c.depth == DepthFast {
		switch {
		case urlRes.IsModern():
			assessment.Status = models.WebsiteStatusModern
			assessment.Confidence = urlRes.Confidence
		case urlRes.IsOld():
			assessment.Status = models.WebsiteStatusOld
			assessment.Confidence = urlRes.Confidence
		default:
			assessment.Status = models.WebsiteStatusUnknown
			assessment.Confidence = 0.3
		}
		return c.finish(domain, assessment, start), nil
	}

	resp, err := c.fetcher.Head(ctx, models.NormalizeWebsiteURL(websiteURL))
	if err != nil {
		return assessment, err
	}
	if !resp.Success {
		// Unreachable site: fall back to what the URL alone told us.
		assessment.Error = resp.Error
		if urlRes.IsOld() {
			assessment.Status = models.WebsiteStatusOld
			assessment.Confidence = 0.5
		} else {
			assessment.Status = models.WebsiteStatusUnknown
			assessment.Confidence = 0.2
		}
		assessment.ElapsedMS = time.Since(start).Milliseconds()
		return assessment, nil
	}

	headerRes := AnalyzeHeaders(resp.Headers)
	assessment.CheckMethods = append(assessment.CheckMethods, "header_check")
	assessment.Signals = appendPrefixed(assessment.Signals, "header:", headerRes.Signals)

	if headerRes.Verdict == VerdictDefinitelyOld {
		assessment.Status = models.WebsiteStatusOld
		assessment.Confidence = headerRes.Confidence
		return c.finish(domain, assessment, start), nil
	}

	if c.depth == DepthNormal {
		old := urlRes.IsOld() || headerRes.IsOld()
		modern := urlRes.IsModern() || headerRes.IsModern()
		switch {
		case old && !modern:
			assessment.Status = models.WebsiteStatusOld
			assessment.Confidence = maxConf(urlRes, headerRes)
			return c.finish(domain, assessment, start), nil
		case modern && !old:
			assessment.Status = models.WebsiteStatusModern
			assessment.Confidence = maxConf(urlRes, headerRes)
			return c.finish(domain, assessment, start), nil
		case old && modern:
			assessment.Status = models.WebsiteStatusUnknown
			assessment.Confidence = 0.4
			return c.finish(domain, assessment, start), nil
		}
		// Both stages undecided: the HTML scan settles it.
	}

	body, err := c.fetcher.GetWithRetry(ctx, models.NormalizeWebsiteURL(websiteURL))
	if err != nil {
		return assessment, err
	}
	if !body.Success {
		assessment.Error = body.Error
		assessment.Status = models.WebsiteStatusUnknown
		assessment.Confidence = 0.3
		assessment.ElapsedMS = time.Since(start).Milliseconds()
		return assessment, nil
	}

	htmlRes := AnalyzeHTML(body.Body)
	assessment.CheckMethods = append(assessment.CheckMethods, "html_scan")
	assessment.Signals = appendPrefixed(assessment.Signals, "html:", htmlRes.Signals)

	oldScore := oldWeight(urlRes, 3, 2) + oldWeight(headerRes, 3, 2) + oldWeight(htmlRes, 4, 2.5)
	if urlRes.Verdict == VerdictBuilder {
		oldScore += 1.5
	}
	modernScore := modernWeight(urlRes, 2) + modernWeight(headerRes, 2) + modernWeight(htmlRes, 3)

	switch {
	case oldScore >= 4:
		assessment.Status = models.WebsiteStatusOld
		assessment.Confidence = cappedConf(oldScore)
	case modernScore >= 4:
		assessment.Status = models.WebsiteStatusModern
		assessment.Confidence = cappedConf(modernScore)
	case oldScore > modernScore:
		assessment.Status = models.WebsiteStatusOld
		assessment.Confidence = 0.6
	case modernScore > oldScore:
		assessment.Status = models.WebsiteStatusModern
		assessment.Confidence = 0.6
	default:
		assessment.Status = models.WebsiteStatusUnknown
		assessment.Confidence = 0.3
	}
	return c.finish(domain, assessment, start), nil
}

func (c *Classifier) finish(domain string, assessment models.WebsiteAssessment, start time.Time) models.WebsiteAssessment {
	assessment.ElapsedMS = time.Since(start).Milliseconds()
	if c.cache != nil && domain != "" && assessment.Error == "" {
		if err := c.cache.Store(domain, assessment); err != nil {
			c.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to cache verdict")
		}
	}
	return assessment
}

func oldWeight(res StageResult, definite, probable float64) float64 {
	switch res.Verdict {
	case VerdictDefinitelyOld:
		return definite
	case VerdictProbablyOld:
		return probable
	}
	return 0
}

func modernWeight(res StageResult, weight float64) float64 {
	if res.Verdict == VerdictProbablyModern {
		return weight
	}
	return 0
}

func cappedConf(score float64) float64 {
	conf := 0.5 + 0.1*score
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func maxConf(results ...StageResult) float64 {
	best := 0.0
	for _, r := range results {
		if r.Confidence > best {
			best = r.Confidence
		}
	}
	return best
}

func appendPrefixed(dst []string, prefix string, signals []string) []string {
	for _, s := range signals {
		dst = append(dst, prefix+s)
	}
	return dst
}

func domainOf(rawURL string) string {
	u, err := url.Parse(models.NormalizeWebsiteURL(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
}
