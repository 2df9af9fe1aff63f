package normalisers

import (
	"fmt"
	"os"

	"github.com/emersion/go-msgauth/dkim"
)

// DKIMVerifier checks message signatures against published DNS keys.
type DKIMVerifier struct {
	// LookupTXT overrides DNS lookups. Nil uses the system resolver.
	LookupTXT func(domain string) ([]string, error)
}

// Verify reports whether the message carries at least one DKIM signature
// and every signature verifies.
func (v DKIMVerifier) Verify(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	verifications, err := dkim.VerifyWithOptions(f, &dkim.VerifyOptions{LookupTXT: v.LookupTXT})
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", path, err)
	}
	if len(verifications) == 0 {
		return false, nil
	}
	for _, ver := range verifications {
		if ver.Err != nil {
			return false, nil
		}
	}
	return true, nil
}
