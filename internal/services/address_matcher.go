package services

import (
	"strings"

	"github.com/mozillazg/go-unidecode"

	"stop-sequencing-service/internal/config"
	"stop-sequencing-service/internal/domain"
)

// NormalizeAddress folds s to lowercase ASCII words separated by single
// spaces. Diacritics are transliterated and any non-alphanumeric rune
// becomes a separator.
func NormalizeAddress(s string) string {
	folded := strings.ToLower(unidecode.Unidecode(s))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// AddressTokens returns the set of normalized words in s.
func AddressTokens(s string) map[string]struct{} {
	words := strings.Fields(NormalizeAddress(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// SimilarityScore is the Jaccard index of the token sets of a and b.
// It is 0 when either side has no tokens.
func SimilarityScore(a, b string) float64 {
	ta := AddressTokens(a)
	tb := AddressTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	small, large := ta, tb
	if len(small) > len(large) {
		small, large = large, small
	}

	inter := 0
	for w := range small {
		if _, ok := large[w]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter

	return float64(inter) / float64(union)
}

// CandidateText synthesizes a single address line from a candidate's fields.
func CandidateText(c domain.CandidateAddress) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Street, c.Locality, c.Region, c.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// PostalCodesEqual is true only when both codes are present and identical.
func PostalCodesEqual(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && a == b
}

// AcceptMatch applies the acceptance rule: a shared postal code lowers the
// similarity bar from TextMatchThreshold to PostalMatchThreshold. Unset
// thresholds fall back to their defaults.
func AcceptMatch(score float64, postalEqual bool, cfg config.Sequencing) bool {
	cfg = cfg.WithDefaults()
	if postalEqual {
		return score >= cfg.PostalMatchThreshold
	}
	return score >= cfg.TextMatchThreshold
}

// MatchStop picks the candidate that best stands in for the stop's address,
// or reports why none does. Candidates are expected most-recent-first; among
// equally good candidates the earlier one wins. Candidates with invalid
// coordinates are ignored.
func MatchStop(stop domain.Stop, candidates []domain.CandidateAddress, cfg config.Sequencing) domain.MatchResult {
	cfg = cfg.WithDefaults()

	if strings.TrimSpace(stop.Address) == "" {
		return domain.MatchResult{Unmatched: true, Reason: domain.ReasonNoAddress}
	}

	usable := 0
	found := false
	var best domain.MatchResult

	for _, c := range candidates {
		if !c.Position.Valid() {
			continue
		}
		usable++

		score := SimilarityScore(stop.Address, CandidateText(c))
		postalEqual := PostalCodesEqual(stop.PostalCode, c.PostalCode)
		if !AcceptMatch(score, postalEqual, cfg) {
			continue
		}

		better := !found ||
			score > best.Score ||
			(score == best.Score && postalEqual && !best.PostalCodeEqual)
		if better {
			found = true
			best = domain.MatchResult{
				Position:        c.Position,
				Origin:          domain.MatchOriginMatched,
				Score:           score,
				PostalCodeEqual: postalEqual,
			}
		}
	}

	if usable == 0 {
		return domain.MatchResult{Unmatched: true, Reason: domain.ReasonNoCandidates}
	}
	if !found {
		return domain.MatchResult{Unmatched: true, Reason: domain.ReasonNoReliableMatch}
	}

	return best
}
