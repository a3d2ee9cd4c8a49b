package evidence

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

// ParsedURL holds the components of a normalized URL. Netloc keeps the raw
// network location ([userinfo@]host[:port]) exactly as written.
type ParsedURL struct {
	Scheme   string
	Netloc   string
	Hostname string
	Port     string
	Path     string
	RawQuery string
}

// NormalizeURL prefixes http:// when the URL carries no scheme. URLs that
// already have one are returned unchanged, so applying it twice is a no-op.
func NormalizeURL(raw string) string {
	if schemePattern.MatchString(raw) {
		return raw
	}
	return "http://" + raw
}

// ErrMalformedURL reports a URL with no usable structure at all.
var ErrMalformedURL = errors.New("malformed URL")

// ParseURL splits a normalized URL into its components. The network location
// runs from "//" to the first '/', '?' or '#' and is kept verbatim, so a bad
// escape in the path or a garbled port never hides the host. Only an empty
// URL or a host with unbalanced IPv6 brackets fails.
func ParseURL(normalized string) (ParsedURL, error) {
	rest := strings.Map(dropTabsAndNewlines, strings.TrimLeftFunc(normalized, isControlOrSpace))
	if rest == "" {
		return ParsedURL{}, fmt.Errorf("%w: empty", ErrMalformedURL)
	}

	var p ParsedURL
	if i := strings.IndexByte(rest, ':'); i > 0 && isScheme(rest[:i]) {
		p.Scheme = strings.ToLower(rest[:i])
		rest = rest[i+1:]
	}

	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		p.Netloc, rest = rest[:end], rest[end:]
		if strings.Contains(p.Netloc, "[") != strings.Contains(p.Netloc, "]") {
			return ParsedURL{}, fmt.Errorf("%w: unbalanced brackets in %q", ErrMalformedURL, p.Netloc)
		}
	}

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, p.RawQuery = rest[:i], rest[i+1:]
	}
	p.Path = rest

	host, port := splitHostPort(p.Netloc)
	p.Hostname = strings.ToLower(host)
	p.Port = port

	return p, nil
}

// splitHostPort drops any userinfo and separates host from port. The port is
// returned as written, digits or not.
func splitHostPort(netloc string) (host, port string) {
	if i := strings.LastIndexByte(netloc, '@'); i >= 0 {
		netloc = netloc[i+1:]
	}
	if _, bracketed, ok := strings.Cut(netloc, "["); ok {
		var rest string
		host, rest, _ = strings.Cut(bracketed, "]")
		_, port, _ = strings.Cut(rest, ":")
		return host, port
	}
	host, port, _ = strings.Cut(netloc, ":")
	return host, port
}

func isScheme(s string) bool {
	if !isASCIILetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isASCIILetter(c) && (c < '0' || c > '9') && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isControlOrSpace(r rune) bool {
	return r <= ' '
}

func dropTabsAndNewlines(r rune) rune {
	if r == '\t' || r == '\r' || r == '\n' {
		return -1
	}
	return r
}

// RegistrableDomain reduces a hostname to the domain a registry holds a record
// for (blog.example.co.uk -> example.co.uk). IP literals and empty hosts have
// none and return "".
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// single-label hosts and bare public suffixes
		return host
	}
	return domain
}
