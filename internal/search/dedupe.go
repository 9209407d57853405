// Package search orchestrates multi-board job searches: fanning a query
// out to the registered source adapters, isolating their failures, and
// merging the raw results into a deduplicated canonical set.
package search

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/jobreach/jobreach/internal/domain"
)

// contentSignature is only computed for bodies longer than this; shorter
// bodies are too generic to be a reliable identity signal.
const minContentLength = 100

// contentPrefixLength bounds the body prefix that feeds the content hash
const contentPrefixLength = 200

// Deduper merges raw listings into canonical ones. Two listings are the
// same posting when any one of their signatures matches; the union rule
// trades occasional false merges for much higher duplicate recall.
type Deduper struct{}

// NewDeduper creates a deduplication engine
func NewDeduper() *Deduper {
	return &Deduper{}
}

// DedupeResult is the outcome of one deduplication pass
type DedupeResult struct {
	Unique            []domain.CanonicalListing
	DuplicatesRemoved int
}

// Dedupe merges the listings in input order. The first listing seen for
// any signature becomes the canonical representative, so callers must
// present listings in a stable order.
func (d *Deduper) Dedupe(listings []domain.RawListing) DedupeResult {
	seen := make(map[string]int) // signature -> index into unique
	var unique []domain.CanonicalListing
	removed := 0

	for _, listing := range listings {
		sigs := signatures(listing)

		match := -1
		for _, sig := range sigs {
			if idx, ok := seen[sig]; ok {
				match = idx
				break
			}
		}

		if match >= 0 {
			canonical := &unique[match]
			canonical.AddSource(listing.Source)
			// Adopt this duplicate's signatures too, so a later listing
			// matching any of them still folds into the same canonical
			for _, sig := range sigs {
				if _, ok := seen[sig]; !ok {
					seen[sig] = match
					canonical.Signatures = append(canonical.Signatures, sig)
				}
			}
			removed++
			continue
		}

		canonical := domain.CanonicalListing{
			RawListing: listing,
			Signatures: sigs,
			Sources:    []string{listing.Source},
		}
		unique = append(unique, canonical)
		for _, sig := range sigs {
			seen[sig] = len(unique) - 1
		}
	}

	return DedupeResult{Unique: unique, DuplicatesRemoved: removed}
}

// signatures computes the independent identity signatures of a listing
func signatures(l domain.RawListing) []string {
	var sigs []string
	if sig := urlSignature(l.URL); sig != "" {
		sigs = append(sigs, "url:"+sig)
	}
	sigs = append(sigs, "id:"+identitySignature(l.Title, l.Organization))
	if sig := contentSignature(l.Description); sig != "" {
		sigs = append(sigs, "content:"+sig)
	}
	return sigs
}

// urlSignature normalizes the origin URL: scheme, host and path lowered,
// query string and fragment stripped
func urlSignature(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.ToLower(parsed.String())
}

// identitySignature hashes the lowered title and organization pair
func identitySignature(title, organization string) string {
	key := strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(organization))
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// contentSignature hashes the leading body text. Returns empty for
// bodies at or below the minimum length.
func contentSignature(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= minContentLength {
		return ""
	}
	prefix := body
	if len(prefix) > contentPrefixLength {
		prefix = prefix[:contentPrefixLength]
	}
	sum := md5.Sum([]byte(strings.ToLower(prefix)))
	return hex.EncodeToString(sum[:])
}
