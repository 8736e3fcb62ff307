package useragent

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// Family is the browser family of an identity
type Family string

const (
	FamilyChrome  Family = "chrome"
	FamilyFirefox Family = "firefox"
	FamilySafari  Family = "safari"
	FamilyEdge    Family = "edge"
)

// Identity is one browser identity with its raw user-agent string
type Identity struct {
	UserAgent string
	Family    Family
	Platform  string // "Windows" or "macOS"
	Version   string
}

// identities is the static pool. Versions track browsers commonly seen in
// German desktop traffic.
var identities = []Identity{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36", FamilyChrome, "Windows", "119"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", FamilyChrome, "Windows", "120"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36", FamilyChrome, "Windows", "121"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", FamilyChrome, "macOS", "120"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36", FamilyChrome, "macOS", "121"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0", FamilyFirefox, "Windows", "120"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0", FamilyFirefox, "Windows", "121"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0", FamilyFirefox, "Windows", "122"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0", FamilyFirefox, "macOS", "121"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:122.0) Gecko/20100101 Firefox/122.0", FamilyFirefox, "macOS", "122"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15", FamilySafari, "macOS", "17.2"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2.1 Safari/605.1.15", FamilySafari, "macOS", "17.2.1"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0", FamilyEdge, "Windows", "119"},
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0", FamilyEdge, "Windows", "120"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0", FamilyEdge, "macOS", "120"},
}

// familyWeight returns the selection weight: Chrome triple, Firefox double
func familyWeight(f Family) int {
	switch f {
	case FamilyChrome:
		return 3
	case FamilyFirefox:
		return 2
	default:
		return 1
	}
}

// Pool supplies browser identities with weighted-random, round-robin and
// rotate-every-N selection. Safe for concurrent use.
type Pool struct {
	identities []Identity
	weighted   []int // identity indices, repeated per family weight

	mu          sync.Mutex
	rng         *rand.Rand
	nextIndex   int
	rotateEvery int
	drawCount   int
	current     int
}

// NewPool creates a pool over the built-in identity set
func NewPool(rotateEvery int, seed int64) *Pool {
	if rotateEvery <= 0 {
		rotateEvery = 10
	}

	var weighted []int
	for i, id := range identities {
		for w := 0; w < familyWeight(id.Family); w++ {
			weighted = append(weighted, i)
		}
	}

	return &Pool{
		identities:  identities,
		weighted:    weighted,
		rng:         rand.New(rand.NewSource(seed)),
		rotateEvery: rotateEvery,
	}
}

// Size returns the number of distinct identities
func (p *Pool) Size() int {
	return len(p.identities)
}

// Random returns a weighted-random identity
func (p *Pool) Random() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identities[p.weighted[p.rng.Intn(len(p.weighted))]]
}

// Next returns the next identity in round-robin order
func (p *Pool) Next() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.identities[p.nextIndex]
	p.nextIndex = (p.nextIndex + 1) % len(p.identities)
	return id
}

// Rotating returns a stable identity that advances every rotateEvery draws
func (p *Pool) Rotating() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawCount%p.rotateEvery == 0 {
		p.current = p.weighted[p.rng.Intn(len(p.weighted))]
	}
	p.drawCount++
	return p.identities[p.current]
}

// Headers builds the full header bundle for an identity. Firefox uses its
// own Accept string and sends no client hints; the Chromium family gets
// Sec-Ch-Ua headers derived from family and version.
func Headers(id Identity) map[string]string {
	headers := map[string]string{
		"Accept-Language":           "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7",
		"Accept-Encoding":           "gzip, deflate, br",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
	}

	if id.Family == FamilyFirefox {
		headers["Accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
		return headers
	}

	headers["Accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"

	if id.Family == FamilyChrome || id.Family == FamilyEdge {
		major := id.Version
		if i := strings.Index(major, "."); i > 0 {
			major = major[:i]
		}
		brand := "Google Chrome"
		if id.Family == FamilyEdge {
			brand = "Microsoft Edge"
		}
		headers["Sec-Ch-Ua"] = fmt.Sprintf(`"Not_A Brand";v="8", "Chromium";v="%s", "%s";v="%s"`, major, brand, major)
		headers["Sec-Ch-Ua-Mobile"] = "?0"
		headers["Sec-Ch-Ua-Platform"] = fmt.Sprintf("%q", id.Platform)
	}

	return headers
}
