package features

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"phishguard/evidence"
)

var errNoParsedURL = errors.New("URL did not parse")

var shortenerPattern = regexp.MustCompile(`bit\.ly|goo\.gl|t\.co|tinyurl|ow\.ly|lnkd\.in|adf\.ly|is\.gd`)

func usingIP(ev *evidence.Evidence) (float64, error) {
	p, ok := ev.Parsed.Get()
	if !ok {
		return 0, errNoParsedURL
	}

	host := strings.SplitN(p.Netloc, ":", 2)[0]
	for _, part := range strings.Split(host, ".") {
		if !isASCIIDigits(part) {
			return Benign, nil
		}
	}
	return Suspicious, nil
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func longURL(ev *evidence.Evidence) (float64, error) {
	n := utf8.RuneCountInString(ev.URL)
	switch {
	case n < 54:
		return Benign, nil
	case n <= 75:
		return Neutral, nil
	default:
		return Suspicious, nil
	}
}

func shortURL(ev *evidence.Evidence) (float64, error) {
	if shortenerPattern.MatchString(ev.URL) {
		return Suspicious, nil
	}
	return Benign, nil
}

func atSymbol(ev *evidence.Evidence) (float64, error) {
	if strings.Contains(ev.URL, "@") {
		return Suspicious, nil
	}
	return Benign, nil
}

// redirecting flags a "//" after the scheme separator, as in
// http://good.example//http://evil.example.
func redirecting(ev *evidence.Evidence) (float64, error) {
	i := strings.LastIndex(ev.URL, "//")
	if i >= 0 && utf8.RuneCountInString(ev.URL[:i]) > 6 {
		return Suspicious, nil
	}
	return Benign, nil
}

func prefixSuffix(ev *evidence.Evidence) (float64, error) {
	if strings.Contains(ev.Netloc(), "-") {
		return Suspicious, nil
	}
	return Benign, nil
}

func subDomains(ev *evidence.Evidence) (float64, error) {
	switch dots := strings.Count(ev.Netloc(), "."); {
	case dots <= 1:
		return Benign, nil
	case dots == 2:
		return Neutral, nil
	default:
		return Suspicious, nil
	}
}

func httpsScheme(ev *evidence.Evidence) (float64, error) {
	p, ok := ev.Parsed.Get()
	if !ok {
		return 0, errNoParsedURL
	}
	if p.Scheme == "https" {
		return Benign, nil
	}
	return Suspicious, nil
}

func nonStdPort(ev *evidence.Evidence) (float64, error) {
	p, ok := ev.Parsed.Get()
	if !ok {
		return 0, errNoParsedURL
	}

	if i := strings.LastIndex(p.Netloc, ":"); i >= 0 {
		port := p.Netloc[i+1:]
		if port != "80" && port != "443" {
			return Suspicious, nil
		}
	}
	return Benign, nil
}

// httpsInDomain catches hosts like https-paypal.example that borrow the
// token to look secure.
func httpsInDomain(ev *evidence.Evidence) (float64, error) {
	if strings.Contains(ev.Netloc(), "https") {
		return Suspicious, nil
	}
	return Benign, nil
}
