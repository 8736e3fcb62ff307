package analyzer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const jsScanLimit = 50000

type generatorRule struct {
	pattern *regexp.Regexp
	signal  string
}

// oldGeneratorsDefinite match generator metas of abandoned CMS versions and
// desktop editors
var oldGeneratorsDefinite = []generatorRule{
	{regexp.MustCompile(`wordpress\s*[1-3]\.`), "generator_wordpress_alt"},
	{regexp.MustCompile(`joomla!?\s*1\.`), "generator_joomla_alt"},
	{regexp.MustCompile(`drupal\s*[1-6]\b`), "generator_drupal_alt"},
	{regexp.MustCompile(`typo3\s*(cms\s*)?[1-6]\b`), "generator_typo3_alt"},
	{regexp.MustCompile(`frontpage`), "generator_frontpage"},
	{regexp.MustCompile(`golive`), "generator_golive"},
	{regexp.MustCompile(`\bnvu\b`), "generator_nvu"},
	{regexp.MustCompile(`kompozer`), "generator_kompozer"},
	{regexp.MustCompile(`microsoft word`), "generator_ms_word"},
}

var oldGeneratorsProbable = []generatorRule{
	{regexp.MustCompile(`wordpress\s*4\.`), "generator_wordpress_4"},
	{regexp.MustCompile(`joomla!?\s*[2-3]\.`), "generator_joomla_frueh"},
	{regexp.MustCompile(`drupal\s*7\b`), "generator_drupal_7"},
	{regexp.MustCompile(`contao`), "generator_contao"},
	{regexp.MustCompile(`redaxo`), "generator_redaxo"},
	{regexp.MustCompile(`websitebaker`), "generator_websitebaker"},
	{regexp.MustCompile(`cmsimple`), "generator_cmsimple"},
	{regexp.MustCompile(`phpwcms`), "generator_phpwcms"},
	{regexp.MustCompile(`dreamweaver`), "generator_dreamweaver"},
}

var modernGenerators = []generatorRule{
	{regexp.MustCompile(`wordpress\s*[5-6]\.`), "generator_wordpress_aktuell"},
	{regexp.MustCompile(`joomla!?\s*[4-5]\.`), "generator_joomla_aktuell"},
	{regexp.MustCompile(`drupal\s*(8|9|10)\b`), "generator_drupal_aktuell"},
	{regexp.MustCompile(`typo3\s*(cms\s*)?(8|9|1[0-3])\b`), "generator_typo3_aktuell"},
	{regexp.MustCompile(`shopify`), "generator_shopify"},
	{regexp.MustCompile(`wix`), "generator_wix"},
	{regexp.MustCompile(`squarespace`), "generator_squarespace"},
	{regexp.MustCompile(`webflow`), "generator_webflow"},
	{regexp.MustCompile(`next\.js`), "generator_nextjs"},
	{regexp.MustCompile(`gatsby`), "generator_gatsby"},
}

// oldJSLibraries match script references to libraries nobody ships anymore
var oldJSLibraries = []generatorRule{
	{regexp.MustCompile(`jquery[.-]?1\.`), "jquery_1"},
	{regexp.MustCompile(`prototype(\.js|\b)`), "prototype_js"},
	{regexp.MustCompile(`mootools`), "mootools"},
	{regexp.MustCompile(`scriptaculous`), "scriptaculous"},
	{regexp.MustCompile(`dojo`), "dojo"},
	{regexp.MustCompile(`\byui\b`), "yui"},
	{regexp.MustCompile(`swfobject`), "swfobject"},
}

var deprecatedTags = []string{"font", "center", "marquee", "blink", "basefont", "big", "strike", "tt", "applet"}

var swfEmbed = regexp.MustCompile(`<embed[^>]+\.swf`)

// AnalyzeHTML classifies a website from its rendered markup. This is the
// most expensive stage and only runs when the cheaper ones stay undecided
// or in thorough mode.
func AnalyzeHTML(html string) StageResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return StageResult{Verdict: VerdictUnknown, Confidence: 0.3}
	}
	lower := strings.ToLower(html)

	var signals []string
	definiteOld, probableOld, modern := 0, 0, 0

	generator := strings.ToLower(doc.Find("meta[name='generator']").AttrOr("content", ""))
	if generator != "" {
		for _, rule := range oldGeneratorsDefinite {
			if rule.pattern.MatchString(generator) {
				signals = append(signals, rule.signal)
				definiteOld++
			}
		}
		for _, rule := range oldGeneratorsProbable {
			if rule.pattern.MatchString(generator) {
				signals = append(signals, rule.signal)
				probableOld++
			}
		}
		for _, rule := range modernGenerators {
			if rule.pattern.MatchString(generator) {
				signals = append(signals, rule.signal)
				modern++
			}
		}
	}

	// Legacy JS shows up either in script srcs or inlined; scanning the full
	// document would be wasted work on large pages.
	var scriptRefs strings.Builder
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		scriptRefs.WriteString(strings.ToLower(s.AttrOr("src", "")))
		scriptRefs.WriteString(" ")
	})
	jsCorpus := scriptRefs.String() + lower[:min(len(lower), jsScanLimit)]
	for _, rule := range oldJSLibraries {
		if rule.pattern.MatchString(jsCorpus) {
			signals = append(signals, rule.signal)
			probableOld++
		}
	}

	if doc.Find("table table").Length() >= 2 {
		signals = append(signals, "verschachtelte_tabellen")
		probableOld++
	}
	if doc.Find("[style]").Length() > 50 {
		signals = append(signals, "viele_inline_styles")
		probableOld++
	}
	if doc.Find("frameset, frame").Length() > 0 {
		signals = append(signals, "frameset")
		definiteOld++
	}

	head := lower[:min(len(lower), 500)]
	switch {
	case strings.Contains(head, "xhtml 1.0 transitional"):
		signals = append(signals, "doctype_xhtml_transitional")
		probableOld++
	case strings.Contains(head, "xhtml 1.0 strict"):
		signals = append(signals, "doctype_xhtml_strict")
		probableOld++
	case strings.Contains(head, "html 4"):
		signals = append(signals, "doctype_html4")
		definiteOld++
	case strings.Contains(head, "html 3"):
		signals = append(signals, "doctype_html3")
		definiteOld++
	case !strings.Contains(head, "<!doctype"):
		signals = append(signals, "kein_doctype")
		probableOld++
	}

	if doc.Find("meta[name='viewport']").Length() == 0 {
		signals = append(signals, "kein_viewport_meta")
		probableOld++
	}

	for _, tag := range deprecatedTags {
		if doc.Find(tag).Length() > 0 {
			signals = append(signals, tag+"_tags")
			probableOld++
		}
	}

	if strings.Contains(lower, "shockwave-flash") ||
		strings.Contains(lower, "application/x-shockwave") ||
		swfEmbed.MatchString(lower) {
		signals = append(signals, "flash_inhalt")
		definiteOld++
	}
	if strings.Contains(lower, "clsid:") {
		signals = append(signals, "activex")
		definiteOld++
	}

	if strings.Contains(lower, "schema.org") && doc.Find("[itemtype]").Length() > 0 {
		signals = append(signals, "schema_org")
		modern++
	}
	if doc.Find(`meta[property^="og:"]`).Length() > 0 {
		signals = append(signals, "open_graph")
		modern++
	}
	if doc.Find(`meta[name^="twitter:"]`).Length() > 0 {
		signals = append(signals, "twitter_cards")
		modern++
	}
	if strings.Contains(lower, "serviceworker") || strings.Contains(lower, "navigator.serviceworker") {
		signals = append(signals, "service_worker")
		modern++
	}
	modernCSS := false
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		css := strings.ToLower(s.Text())
		if strings.Contains(css, "display:flex") || strings.Contains(css, "display: flex") ||
			strings.Contains(css, "display:grid") || strings.Contains(css, "display: grid") {
			modernCSS = true
		}
	})
	if modernCSS {
		signals = append(signals, "modern_css")
		modern++
	}
	if strings.Contains(lower, "__next") || strings.Contains(lower, "__nuxt") {
		signals = append(signals, "spa_framework")
		modern++
	}
	if strings.Contains(lower, "data-reactroot") {
		signals = append(signals, "react")
		modern++
	}

	switch {
	case definiteOld >= 1:
		return StageResult{Verdict: VerdictDefinitelyOld, Confidence: 0.95, Signals: signals}
	case probableOld >= 3:
		return StageResult{Verdict: VerdictProbablyOld, Confidence: 0.8, Signals: signals}
	case probableOld == 2:
		return StageResult{Verdict: VerdictProbablyOld, Confidence: 0.65, Signals: signals}
	case probableOld == 1 && modern == 0:
		return StageResult{Verdict: VerdictProbablyOld, Confidence: 0.5, Signals: signals}
	case modern >= 3:
		return StageResult{Verdict: VerdictProbablyModern, Confidence: 0.85, Signals: signals}
	case modern >= 1:
		return StageResult{Verdict: VerdictProbablyModern, Confidence: 0.6, Signals: signals}
	default:
		return StageResult{Verdict: VerdictUnknown, Confidence: 0.3, Signals: signals}
	}
}
