package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	defaultCORSHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	// Retry-After accompanies chat 429 responses.
	corsExposedHeaders = "Retry-After, X-Request-ID"
)

// CORSOptions configures CORS. Origins may be exact, "*" or a subdomain
// wildcard such as "https://*.careconnect.in". Empty header and method lists
// use the API defaults.
type CORSOptions struct {
	AllowedOrigins []string
	AllowedHeaders []string
	AllowedMethods []string
	MaxAge         time.Duration
}

// Enabled reports whether any origin is allowed.
func (o CORSOptions) Enabled() bool {
	return len(o.AllowedOrigins) > 0
}

type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	// "https://*.example.com" is kept as schemes[i] "https://" and
	// suffixes[i] ".example.com".
	schemes  []string
	suffixes []string
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: map[string]struct{}{}}
	for _, origin := range origins {
		origin = strings.TrimSuffix(strings.TrimSpace(origin), "/")
		switch {
		case origin == "":
		case origin == "*":
			m.any = true
		case strings.Contains(origin, "://*."):
			scheme, domain, _ := strings.Cut(origin, "://*")
			m.schemes = append(m.schemes, scheme+"://")
			m.suffixes = append(m.suffixes, domain)
		default:
			m.exact[origin] = struct{}{}
		}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	if m.any {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for i, suffix := range m.suffixes {
		host, ok := strings.CutPrefix(origin, m.schemes[i])
		if ok && len(host) > len(suffix) && strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// CORS answers preflight requests and decorates responses for allowed
// origins. Requests from other origins pass through without CORS headers.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	origins := newOriginMatcher(opts.AllowedOrigins)
	headers := opts.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	methods := opts.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	allowedHeaders := strings.Join(headers, ", ")
	allowedMethods := strings.Join(methods, ", ")
	maxAgeSeconds := strconv.Itoa(int(maxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || !origins.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")

			requested := r.Header.Get("Access-Control-Request-Method")
			if r.Method != http.MethodOptions || requested == "" {
				h.Set("Access-Control-Expose-Headers", corsExposedHeaders)
				next.ServeHTTP(w, r)
				return
			}

			if !slices.ContainsFunc(methods, func(m string) bool { return strings.EqualFold(m, requested) }) {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			h.Set("Access-Control-Allow-Headers", allowedHeaders)
			h.Set("Access-Control-Allow-Methods", allowedMethods)
			h.Set("Access-Control-Max-Age", maxAgeSeconds)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
