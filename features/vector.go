// Package features maps collected evidence to the fixed-width signal vector
// the classifier was trained on.
//
// Positions are a contract with every trained model: entries may never be
// reordered, inserted or removed without retraining.
package features

// Width is the length of every feature vector.
const Width = 33

// CategoricalWidth is the number of leading {-1, 0, 1} heuristic signals.
const CategoricalWidth = 30

// Signal values. Benign indicators are positive.
const (
	Benign     = 1.0
	Neutral    = 0.0
	Suspicious = -1.0
)

// ID is the position of a signal in the vector.
type ID int

const (
	UsingIP ID = iota
	LongURL
	ShortURL
	Symbol
	Redirecting
	PrefixSuffix
	SubDomains
	HTTPS
	DomainRegLen
	Favicon
	NonStdPort
	HTTPSDomainURL
	RequestURL
	AnchorURL
	LinksInScriptTags
	ServerFormHandler
	InfoEmail
	AbnormalURL
	WebsiteForwarding
	StatusBarCust
	DisableRightClick
	UsingPopupWindow
	IframeRedirection
	AgeOfDomain
	DNSRecording
	WebsiteTraffic
	PageRank
	GoogleIndex
	LinksPointingToPage
	StatsReport
	DigitCount
	SpecialCount
	Entropy
)

// String returns the column name used in datasets and artifacts.
func (id ID) String() string {
	if id < 0 || int(id) >= Width {
		return "unknown"
	}
	return signals[id].name
}

// Vector is one extracted feature vector.
type Vector [Width]float64

// Slice returns the vector as a slice, the form the model consumes.
func (v Vector) Slice() []float64 {
	out := make([]float64, Width)
	copy(out, v[:])
	return out
}

// Names returns the column names in vector order.
func Names() []string {
	names := make([]string, Width)
	for i := range signals {
		names[i] = signals[i].name
	}
	return names
}
