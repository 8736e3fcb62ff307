package models

// FetchResponse is the normalized result of one HTTP or browser fetch.
// Network-layer failures fold into Success=false with StatusCode 0 and the
// error text captured; they are not surfaced as Go errors.
type FetchResponse struct {
	Success    bool
	StatusCode int
	Body       string
	URL        string
	FinalURL   string
	Headers    map[string]string // case-folded keys
	ElapsedMS  int64
	Error      string
}

// Header returns a response header by case-insensitive name
func (r *FetchResponse) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[foldKey(name)]
}

func foldKey(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
