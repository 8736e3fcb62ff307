package proxy

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Scheme is a supported proxy protocol
type Scheme string

const (
	SchemeHTTP   Scheme = "http"
	SchemeHTTPS  Scheme = "https"
	SchemeSOCKS5 Scheme = "socks5"
)

// Entry is one outbound proxy with its health accounting
type Entry struct {
	Host     string
	Port     int
	Scheme   Scheme
	Username string
	Password string

	SuccessCount int
	FailureCount int
	Blocked      bool
}

// URL renders the proxy as scheme://[user:pass@]host:port
func (e *Entry) URL() string {
	auth := ""
	if e.Username != "" && e.Password != "" {
		auth = url.UserPassword(e.Username, e.Password).String() + "@"
	}
	return fmt.Sprintf("%s://%s%s:%d", e.Scheme, auth, e.Host, e.Port)
}

// Rotator cycles through a proxy list by request count, skipping entries
// blocked after repeated failures. Safe for concurrent use.
type Rotator struct {
	mu           sync.Mutex
	entries      []*Entry
	currentIndex int
	requestCount int
	rotateEveryN int
	maxFailures  int
}

// NewRotator creates an empty rotator
func NewRotator(rotateEveryN, maxFailures int) *Rotator {
	if rotateEveryN <= 0 {
		rotateEveryN = 10
	}
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &Rotator{
		rotateEveryN: rotateEveryN,
		maxFailures:  maxFailures,
	}
}

// LoadFile reads proxies from a text file, one per line in the form
// [scheme://][user:pass@]host:port. Blank lines and #-comments are skipped.
func (r *Rotator) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open proxy file %s: %w", path, err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := ParseEntry(line)
		if err != nil {
			continue
		}
		r.Add(entry)
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read proxy file %s: %w", path, err)
	}
	return count, nil
}

// ParseEntry parses a single proxy line
func ParseEntry(line string) (*Entry, error) {
	scheme := SchemeHTTP
	rest := line

	if i := strings.Index(rest, "://"); i >= 0 {
		switch strings.ToLower(rest[:i]) {
		case "socks5":
			scheme = SchemeSOCKS5
		case "https":
			scheme = SchemeHTTPS
		case "http":
			scheme = SchemeHTTP
		default:
			return nil, fmt.Errorf("unsupported proxy scheme in %q", line)
		}
		rest = rest[i+3:]
	}

	var username, password string
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		auth := rest[:i]
		rest = rest[i+1:]
		if j := strings.Index(auth, ":"); j >= 0 {
			username, password = auth[:j], auth[j+1:]
		}
	}

	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		return nil, fmt.Errorf("missing port in proxy %q", line)
	}
	port, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return nil, fmt.Errorf("invalid port in proxy %q", line)
	}

	return &Entry{
		Host:     rest[:i],
		Port:     port,
		Scheme:   scheme,
		Username: username,
		Password: password,
	}, nil
}

// Add appends a proxy to the rotation
func (r *Rotator) Add(entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// Enabled reports whether any proxies are loaded
func (r *Rotator) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries) > 0
}

// Next returns the proxy for the next request, advancing the rotation every
// rotateEveryN calls and skipping blocked entries. Returns nil when the
// list is empty or fully blocked.
func (r *Rotator) Next() *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return nil
	}

	r.requestCount++
	if r.requestCount >= r.rotateEveryN {
		r.requestCount = 0
		r.currentIndex = (r.currentIndex + 1) % len(r.entries)
	}

	for attempts := 0; attempts < len(r.entries); attempts++ {
		entry := r.entries[r.currentIndex]
		if !entry.Blocked {
			return entry
		}
		r.currentIndex = (r.currentIndex + 1) % len(r.entries)
	}
	return nil
}

// ReportSuccess records a successful request through the proxy
func (r *Rotator) ReportSuccess(entry *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.SuccessCount++
}

// ReportFailure records a failed request and blocks the proxy after
// maxFailures, or immediately when forced
func (r *Rotator) ReportFailure(entry *Entry, force bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.FailureCount++
	if force || entry.FailureCount >= r.maxFailures {
		entry.Blocked = true
	}
}

// ResetBlocked clears all block flags and returns how many were cleared
func (r *Rotator) ResetBlocked() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, entry := range r.entries {
		if entry.Blocked {
			entry.Blocked = false
			entry.FailureCount = 0
			count++
		}
	}
	return count
}

// Stats summarizes the rotation state
type Stats struct {
	Total   int
	Active  int
	Blocked int
}

// GetStats returns current rotation statistics
func (r *Rotator) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{Total: len(r.entries)}
	for _, entry := range r.entries {
		if entry.Blocked {
			stats.Blocked++
		}
	}
	stats.Active = stats.Total - stats.Blocked
	return stats
}
