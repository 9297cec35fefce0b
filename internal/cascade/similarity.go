package cascade

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// TokenSetRatio computes a normalized string similarity in [0, 1] between two
// titles. Titles are lowercased and split into unique sorted tokens; the
// shared token set is compared against each full token set and the best ratio
// wins. Word order and repeated words do not affect the score, which is what
// retail titles need: "Dress Burgundy Midi" and "Burgundy Midi Dress" score 1.
func TokenSetRatio(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)

	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	var shared, onlyA, onlyB []string
	for tok := range ta {
		if tb[tok] {
			shared = append(shared, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(shared, " ")
	full1 := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := editRatio(base, full1)
	if r := editRatio(base, full2); r > best {
		best = r
	}
	if r := editRatio(full1, full2); r > best {
		best = r
	}

	return best
}

// editRatio is a Levenshtein-based similarity in [0, 1].
func editRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?()[]\"'")
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}
