package screening

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/insurance/screening-service/internal/domain"
)

// foldDiacritics strips combining marks so accented and unaccented spellings
// compare equal.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName canonicalizes a free-text field: diacritics stripped,
// uppercased, internal whitespace collapsed, ends trimmed. Total and
// idempotent; empty input yields an empty string.
func NormalizeName(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToUpper(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// NormalizeID canonicalizes an identity document number. On top of name
// normalization it drops every non-alphanumeric separator, so "12.345-6"
// and "123456" compare equal.
func NormalizeID(s string) string {
	s = NormalizeName(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeIdentity canonicalizes every field of a query identity. Missing
// inputs normalize to empty strings, never to an absent value.
func NormalizeIdentity(q domain.QueryIdentity) domain.NormalizedIdentity {
	return domain.NormalizedIdentity{
		FullNameNorm:     NormalizeName(q.FullName),
		NationalIDNorm:   NormalizeID(q.NationalID),
		PassportNorm:     NormalizeID(q.Passport),
		ResidentCardNorm: NormalizeID(q.ResidentCard),
		CountryNorm:      NormalizeName(q.Country),
	}
}

// nameTokens splits a normalized name into its word set.
func nameTokens(name string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, t := range strings.Fields(name) {
		tokens[t] = struct{}{}
	}
	return tokens
}
