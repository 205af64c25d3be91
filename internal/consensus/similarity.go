package consensus

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// buildSimilarityMatrix computes the symmetric N x N pairwise similarity
// matrix over outputs. Failed generations get a row/column of zero
// similarity against everyone, including themselves, so they never
// contribute to an agreement group.
func buildSimilarityMatrix(outputs []Output, schema SchemaCapability) [][]float64 {
	n := len(outputs)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		if outputs[i].Status != StatusSuccess {
			continue
		}
		matrix[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			if outputs[j].Status != StatusSuccess {
				continue
			}
			sim := similarity(outputs[i], outputs[j])
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}
	return matrix
}

// similarity dispatches to structured or text comparison depending on
// whether either output carries decoded Data.
func similarity(a, b Output) float64 {
	if a.Data != nil || b.Data != nil {
		return structuralSimilarity(a.Data, b.Data)
	}
	return textSimilarity(a.Text, b.Text)
}

// textSimilarity is normalized Levenshtein distance over
// whitespace-normalized, case-folded strings, via diffmatchpatch.DiffMain
// + DiffLevenshtein.
func textSimilarity(a, b string) float64 {
	a = normalizeText(a)
	b = normalizeText(b)
	if a == b {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	return 1.0 - float64(distance)/float64(maxLen)
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// structuralSimilarity recursively compares two decoded values: numbers by
// proportional difference, booleans and strings by exact/normalized
// comparison, arrays by per-index average, objects by per-key average over
// the key union. Any type mismatch or unparseable value yields 0.
func structuralSimilarity(a, b interface{}) float64 {
	if a == nil && b == nil {
		return 1.0
	}
	if a == nil || b == nil {
		return 0.0
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0.0
		}
		return textSimilarity(av, bv)

	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0.0
		}
		if av == bv {
			return 1.0
		}
		return 0.0

	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0.0
		}
		return numberSimilarity(av, bv)

	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok {
			return 0.0
		}
		return arraySimilarity(av, bv)

	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok {
			return 0.0
		}
		return objectSimilarity(av, bv)

	default:
		return 0.0
	}
}

func numberSimilarity(a, b float64) float64 {
	if a == b {
		return 1.0
	}
	absA, absB := abs(a), abs(b)
	denom := absA
	if absB > denom {
		denom = absB
	}
	if denom == 0 {
		return 1.0
	}
	return 1.0 - abs(a-b)/denom
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func arraySimilarity(a, b []interface{}) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	var total float64
	for i := 0; i < maxLen; i++ {
		var av, bv interface{}
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		total += structuralSimilarity(av, bv)
	}
	return total / float64(maxLen)
}

func objectSimilarity(a, b map[string]interface{}) float64 {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 1.0
	}
	var total float64
	for k := range keys {
		total += structuralSimilarity(a[k], b[k])
	}
	return total / float64(len(keys))
}

// perPathAgreement computes, for each top-level key present in any
// successful structured output, the fraction of outputs whose value at
// that key matches the majority within threshold. Used by
// findDisagreements to decide whether structured outputs outside every
// agreement cluster still count as disagreements.
func perPathAgreement(outputs []Output, threshold float64) map[string]float64 {
	agreement := make(map[string]float64)
	keys := map[string]struct{}{}
	for _, o := range outputs {
		if o.Status != StatusSuccess {
			continue
		}
		if m, ok := o.Data.(map[string]interface{}); ok {
			for k := range m {
				keys[k] = struct{}{}
			}
		}
	}

	successCount := 0
	for _, o := range outputs {
		if o.Status == StatusSuccess {
			successCount++
		}
	}
	if successCount == 0 {
		return agreement
	}

	for k := range keys {
		best := 0
		for _, o := range outputs {
			if o.Status != StatusSuccess {
				continue
			}
			m, _ := o.Data.(map[string]interface{})
			matches := 0
			for _, other := range outputs {
				if other.Status != StatusSuccess {
					continue
				}
				om, _ := other.Data.(map[string]interface{})
				if structuralSimilarity(m[k], om[k]) >= threshold {
					matches++
				}
			}
			if matches > best {
				best = matches
			}
		}
		agreement[k] = float64(best) / float64(successCount)
	}
	return agreement
}
