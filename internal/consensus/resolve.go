package consensus

import (
	"sort"
	"strings"

	"github.com/sanix-darker/streamkernel/internal/kernelerr"
)

// resolve assembles the single Output a consensus run reports, per
// Options.Strategy. Options.Conflict governs the unanimous strategy's
// fallback when similarity is too low (the minimum-agreement check runs
// earlier, in Run); the weighted strategy fails unless Options.Weights
// holds a positive weight for every generation.
func resolve(outputs []Output, matrix [][]float64, opts Options) (Output, error) {
	successful := successfulIndices(outputs)
	if len(successful) == 0 {
		return Output{}, kernelerr.New(kernelerr.AllStreamsFailed, "no successful generation to resolve from")
	}

	switch opts.Strategy {
	case StrategyBest:
		return resolveBest(outputs, successful), nil

	case StrategyWeighted:
		if len(opts.Weights) < len(outputs) {
			return Output{}, kernelerr.New(kernelerr.AllStreamsFailed, "weighted strategy requires a weight for every generation")
		}
		for _, w := range opts.Weights[:len(outputs)] {
			if w <= 0 {
				return Output{}, kernelerr.New(kernelerr.AllStreamsFailed, "weighted strategy requires a positive weight on every generation")
			}
		}
		return resolveMajority(outputs, matrix, successful, true)

	case StrategyUnanimous:
		return resolveUnanimous(outputs, matrix, successful, opts)

	case StrategyMajority:
		return resolveMajority(outputs, matrix, successful, false)

	default:
		return resolveMajority(outputs, matrix, successful, false)
	}
}

func successfulIndices(outputs []Output) []int {
	var idx []int
	for i, o := range outputs {
		if o.Status == StatusSuccess {
			idx = append(idx, i)
		}
	}
	return idx
}

// resolveBest picks the highest-weight output, ties broken by lowest
// index.
func resolveBest(outputs []Output, successful []int) Output {
	best := successful[0]
	for _, i := range successful[1:] {
		if outputs[i].Weight > outputs[best].Weight {
			best = i
		}
	}
	return outputs[best]
}

// resolveMajority picks the output with the greatest weighted similarity
// sum to every other successful output; for structured data it instead
// assembles a per-field majority value. weighted=true requires every
// candidate to carry a positive Weight.
func resolveMajority(outputs []Output, matrix [][]float64, successful []int, weighted bool) (Output, error) {
	if weighted {
		for _, i := range successful {
			if outputs[i].Weight <= 0 {
				return Output{}, kernelerr.New(kernelerr.AllStreamsFailed, "weighted strategy requires a positive weight on every generation")
			}
		}
	}

	if isStructured(outputs, successful) {
		return assembleStructuredMajority(outputs, successful), nil
	}

	best := successful[0]
	bestScore := -1.0
	for _, i := range successful {
		var score float64
		for _, j := range successful {
			if i == j {
				continue
			}
			w := 1.0
			if weighted {
				w = outputs[j].Weight
			}
			score += matrix[i][j] * w
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return outputs[best], nil
}

// resolveUnanimous requires the average pairwise similarity across all
// successful outputs to be >= 0.95; below that it falls back to
// Options.Conflict (merge/best/vote-as-majority), or fails.
func resolveUnanimous(outputs []Output, matrix [][]float64, successful []int, opts Options) (Output, error) {
	avg := averageSimilarity(successful, matrix)
	if avg >= 0.95 {
		return resolveMajority(outputs, matrix, successful, false)
	}

	switch opts.Conflict {
	case ConflictMerge:
		return mergeOutputs(outputs, successful), nil
	case ConflictBest:
		return resolveBest(outputs, successful), nil
	case ConflictFail:
		return Output{}, kernelerr.New(kernelerr.AllStreamsFailed, "unanimous strategy requires similarity >= 0.95")
	default:
		return resolveMajority(outputs, matrix, successful, false)
	}
}

// mergeOutputs concatenates unique, non-empty texts across successful
// outputs (ConflictMerge, text mode), or unions structured keys with
// first-value-wins (ConflictMerge, structured mode).
func mergeOutputs(outputs []Output, successful []int) Output {
	if isStructured(outputs, successful) {
		merged := map[string]interface{}{}
		for _, i := range successful {
			m, ok := outputs[i].Data.(map[string]interface{})
			if !ok {
				continue
			}
			for k, v := range m {
				if _, exists := merged[k]; !exists {
					merged[k] = v
				}
			}
		}
		return Output{Index: successful[0], Data: merged, Status: StatusSuccess}
	}

	seen := map[string]bool{}
	var parts []string
	for _, i := range successful {
		text := strings.TrimSpace(outputs[i].Text)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		parts = append(parts, text)
	}
	return Output{Index: successful[0], Text: strings.Join(parts, "\n"), Status: StatusSuccess}
}

func isStructured(outputs []Output, successful []int) bool {
	for _, i := range successful {
		if outputs[i].Data != nil {
			return true
		}
	}
	return false
}

// assembleStructuredMajority builds one object whose value at each key is
// the value held by whichever output is part of that key's largest
// agreeing cluster.
func assembleStructuredMajority(outputs []Output, successful []int) Output {
	keys := map[string]struct{}{}
	for _, i := range successful {
		if m, ok := outputs[i].Data.(map[string]interface{}); ok {
			for k := range m {
				keys[k] = struct{}{}
			}
		}
	}

	result := map[string]interface{}{}
	for k := range keys {
		result[k] = majorityValueForKey(outputs, successful, k)
	}
	return Output{Index: successful[0], Data: result, Status: StatusSuccess}
}

func majorityValueForKey(outputs []Output, successful []int, key string) interface{} {
	type candidate struct {
		value interface{}
		count int
	}
	var candidates []candidate

	for _, i := range successful {
		m, _ := outputs[i].Data.(map[string]interface{})
		v := m[key]
		matched := false
		for ci := range candidates {
			if structuralSimilarity(candidates[ci].value, v) >= 0.999 {
				candidates[ci].count++
				matched = true
				break
			}
		}
		if !matched {
			candidates = append(candidates, candidate{value: v, count: 1})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].count > candidates[b].count
	})
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0].value
}

func averageSimilarity(successful []int, matrix [][]float64) float64 {
	if len(successful) < 2 {
		return 1.0
	}
	var sum float64
	var pairs int
	for a := 0; a < len(successful); a++ {
		for b := a + 1; b < len(successful); b++ {
			sum += matrix[successful[a]][successful[b]]
			pairs++
		}
	}
	return sum / float64(pairs)
}
