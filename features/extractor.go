package features

import (
	"github.com/sirupsen/logrus"

	"phishguard/evidence"
)

// signal is one entry of the extraction table. compute returns an error when
// the evidence it needs is missing or malformed; the fallback is used instead.
type signal struct {
	name     string
	compute  func(ev *evidence.Evidence) (float64, error)
	fallback float64
}

var signals = [...]signal{
	UsingIP:             {"UsingIp", usingIP, Benign},
	LongURL:             {"longUrl", longURL, Suspicious},
	ShortURL:            {"shortUrl", shortURL, Benign},
	Symbol:              {"symbol", atSymbol, Suspicious},
	Redirecting:         {"redirecting", redirecting, Suspicious},
	PrefixSuffix:        {"prefixSuffix", prefixSuffix, Suspicious},
	SubDomains:          {"SubDomains", subDomains, Suspicious},
	HTTPS:               {"Hppts", httpsScheme, Suspicious},
	DomainRegLen:        {"DomainRegLen", domainRegLen, Suspicious},
	Favicon:             {"Favicon", favicon, Suspicious},
	NonStdPort:          {"NonStdPort", nonStdPort, Benign},
	HTTPSDomainURL:      {"HTTPSDomainURL", httpsInDomain, Suspicious},
	RequestURL:          {"RequestURL", requestURL, Suspicious},
	AnchorURL:           {"AnchorURL", anchorURL, Suspicious},
	LinksInScriptTags:   {"LinksInScriptTags", constant(Benign), Benign},
	ServerFormHandler:   {"ServerFormHandler", constant(Benign), Benign},
	InfoEmail:           {"InfoEmail", constant(Benign), Benign},
	AbnormalURL:         {"AbnormalURL", constant(Benign), Benign},
	WebsiteForwarding:   {"WebsiteForwarding", constant(Benign), Benign},
	StatusBarCust:       {"StatusBarCust", constant(Benign), Benign},
	DisableRightClick:   {"DisableRightClick", constant(Benign), Benign},
	UsingPopupWindow:    {"UsingPopupWindow", constant(Benign), Benign},
	IframeRedirection:   {"IframeRedirection", constant(Benign), Benign},
	AgeOfDomain:         {"AgeofDomain", constant(Benign), Benign},
	DNSRecording:        {"DNSRecording", constant(Benign), Benign},
	WebsiteTraffic:      {"WebsiteTraffic", constant(Benign), Benign},
	PageRank:            {"PageRank", constant(Neutral), Neutral},
	GoogleIndex:         {"GoogleIndex", constant(Benign), Benign},
	LinksPointingToPage: {"LinksPointingToPage", constant(Benign), Benign},
	StatsReport:         {"StatsReport", constant(Benign), Benign},
	DigitCount:          {"DigitCount", digitCount, 0},
	SpecialCount:        {"SpecialCount", specialCount, 0},
	Entropy:             {"Entropy", entropy, 0},
}

// the table must have exactly Width entries
var (
	_ [Width - len(signals)]struct{}
	_ [len(signals) - Width]struct{}
)

// constant is used for heuristics this implementation does not compute from
// live evidence. The trained model still expects their column.
func constant(v float64) func(*evidence.Evidence) (float64, error) {
	return func(*evidence.Evidence) (float64, error) {
		return v, nil
	}
}

func (s signal) evaluate(ev *evidence.Evidence) float64 {
	v, err := s.compute(ev)
	if err != nil {
		logrus.WithField("signal", s.name).Debugf("[FEATURES] using fallback %v: %v", s.fallback, err)
		return s.fallback
	}
	return v
}

// Extract computes the feature vector for the evidence. It never fails and
// is deterministic for a given evidence bundle.
func Extract(ev *evidence.Evidence) Vector {
	var v Vector
	for i := range signals {
		v[i] = signals[i].evaluate(ev)
	}
	return v
}

// Value is one named entry of a vector.
type Value struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Explain pairs each entry of v with its column name, in vector order.
func Explain(v Vector) []Value {
	out := make([]Value, Width)
	for i := range signals {
		out[i] = Value{Name: signals[i].name, Value: v[i]}
	}
	return out
}
