package model

// Label is the semantic verdict for a URL.
type Label string

const (
	Phishing   Label = "phishing"
	Legitimate Label = "legitimate"
)

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	return l == Phishing || l == Legitimate
}
