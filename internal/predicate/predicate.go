// Package predicate implements the aesthetic match rules a mined CREATE2
// address is judged against: a hex prefix match, or a vanity score built
// from leading/trailing '1' hex digits.
package predicate

import "fmt"

// Kind distinguishes the two predicate shapes the miner supports.
type Kind int

const (
	// KindVanityOnes counts leading/trailing '1' hex digits.
	KindVanityOnes Kind = iota
	// KindPrefixMatch requires the address to begin with a fixed hex prefix.
	KindPrefixMatch
)

// Predicate is the configured acceptance rule for a run. Only one of
// VanityOnes or PrefixHex is meaningful, selected by Kind.
type Predicate struct {
	Kind Kind

	// VanityOnes fields.
	MinLeading  uint8
	MinTrailing uint8

	// PrefixMatch field: lowercase hex, length in [0, 40].
	PrefixHex string
}

// VanityOnes builds a vanity-score predicate.
func VanityOnes(minLeading, minTrailing uint8) Predicate {
	return Predicate{Kind: KindVanityOnes, MinLeading: minLeading, MinTrailing: minTrailing}
}

// PrefixMatch builds a prefix-match predicate. prefix must already be
// lowercase hex with no "0x" prefix.
func PrefixMatch(prefix string) Predicate {
	return Predicate{Kind: KindPrefixMatch, PrefixHex: prefix}
}

// KernelFilter returns the (min_leading, min_trailing) pair that goes into
// kernel message bytes 52-53 (spec section 6). Prefix matching is not
// plumbed into the on-device filter (spec section 9's open question,
// resolved host-side): the kernel is told 0/0, which means "emit every
// hit", and the host applies the real predicate in Evaluate.
func (p Predicate) KernelFilter() (minLeading, minTrailing uint8) {
	if p.Kind == KindPrefixMatch {
		return 0, 0
	}
	return p.MinLeading, p.MinTrailing
}

// Score returns the leading + trailing count of '1' hex digits in a
// lowercase 40-hex-digit address, regardless of which Kind the predicate
// is — used both to evaluate VanityOnes and to report a descriptive score
// for recorded Hits under PrefixMatch.
func Score(addrHex string) (leading, trailing uint8) {
	leading = countRun(addrHex, false)
	trailing = countRun(addrHex, true)
	return leading, trailing
}

func countRun(addrHex string, fromEnd bool) uint8 {
	n := len(addrHex)
	var count uint8
	for i := 0; i < n; i++ {
		var c byte
		if fromEnd {
			c = addrHex[n-1-i]
		} else {
			c = addrHex[i]
		}
		if c != '1' {
			break
		}
		count++
	}
	return count
}

// Evaluate reports whether addrHex (a lowercase 40-hex-digit address)
// satisfies the predicate given the best_known_score snapshot visible to
// the caller. For VanityOnes this is the full acceptance rule from spec
// section 3, including the "score must exceed best known" clause except
// when bestKnownScore is 0. For PrefixMatch, bestKnownScore is ignored —
// a prefix predicate has no notion of improving on a running score.
func (p Predicate) Evaluate(addrHex string, bestKnownScore uint32) (ok bool, leading, trailing uint8) {
	switch p.Kind {
	case KindPrefixMatch:
		if len(p.PrefixHex) > len(addrHex) {
			return false, 0, 0
		}
		l, t := Score(addrHex)
		return addrHex[:len(p.PrefixHex)] == p.PrefixHex, l, t
	case KindVanityOnes:
		l, t := Score(addrHex)
		if l < p.MinLeading || t < p.MinTrailing {
			return false, l, t
		}
		score := uint32(l) + uint32(t)
		if bestKnownScore != 0 && score <= bestKnownScore {
			return false, l, t
		}
		return true, l, t
	default:
		return false, 0, 0
	}
}

// Validate reports a descriptive error if the predicate's own fields are
// out of range (the ConfigInvalid cases from spec section 7).
func (p Predicate) Validate() error {
	switch p.Kind {
	case KindPrefixMatch:
		if len(p.PrefixHex) > 40 {
			return fmt.Errorf("prefix %q longer than 40 hex digits", p.PrefixHex)
		}
		for _, c := range p.PrefixHex {
			if !isHexDigit(byte(c)) {
				return fmt.Errorf("prefix %q contains non-hex character %q", p.PrefixHex, c)
			}
		}
		return nil
	case KindVanityOnes:
		if int(p.MinLeading)+int(p.MinTrailing) > 40 {
			return fmt.Errorf("min_leading(%d)+min_trailing(%d) exceeds 40 hex digits", p.MinLeading, p.MinTrailing)
		}
		return nil
	default:
		return fmt.Errorf("unknown predicate kind %d", p.Kind)
	}
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
