package features

import (
	"errors"

	"phishguard/evidence"
)

var errIncompleteRecord = errors.New("registration record lacks creation or expiration date")

// domainRegLen rates the registration span; throwaway phishing domains are
// rarely registered for a year or more.
func domainRegLen(ev *evidence.Evidence) (float64, error) {
	rec, ok := ev.Registration.Get()
	if !ok {
		return 0, ev.Registration.Reason()
	}
	if rec.Created.IsZero() || rec.Expires.IsZero() {
		return 0, errIncompleteRecord
	}

	months := (rec.Expires.Year()-rec.Created.Year())*12 + int(rec.Expires.Month()) - int(rec.Created.Month())
	if months >= 12 {
		return Benign, nil
	}
	return Suspicious, nil
}
