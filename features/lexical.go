package features

import (
	"math"
	"sort"
	"strings"

	"phishguard/evidence"
)

const specialChars = "-@?%=&."

// entropySmoothing keeps log2 away from zero probabilities.
const entropySmoothing = 1e-10

// CountDigits counts ASCII digits.
func CountDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

// CountSpecialChars counts characters from the set - @ ? % = & .
func CountSpecialChars(s string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			n++
		}
	}
	return n
}

// CharEntropy is the Shannon entropy, in bits, of the character frequency
// distribution of s. Terms are summed in character order, so any
// permutation of s yields the identical value. It is never negative and is
// 0 for the empty string.
func CharEntropy(s string) float64 {
	counts := make(map[rune]int)
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	if n == 0 {
		return 0
	}

	chars := make([]rune, 0, len(counts))
	for r := range counts {
		chars = append(chars, r)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })

	h := 0.0
	for _, r := range chars {
		p := float64(counts[r]) / float64(n)
		h -= p * math.Log2(p+entropySmoothing)
	}

	// a single repeated character gives -log2(1+1e-10)
	return math.Max(h, 0)
}

func digitCount(ev *evidence.Evidence) (float64, error) {
	return float64(CountDigits(ev.URL)), nil
}

func specialCount(ev *evidence.Evidence) (float64, error) {
	return float64(CountSpecialChars(ev.URL)), nil
}

func entropy(ev *evidence.Evidence) (float64, error) {
	return CharEntropy(ev.URL), nil
}
