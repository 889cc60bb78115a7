package main

import (
	"encoding/json"
	"fmt"
	"os"

	simapi "phylosim/pkg/phylosim"
)

// loadRunRequestFromConfig reads a JSON run configuration. Unknown keys are
// ignored so configs stay forward compatible; values are coerced leniently
// (JSON numbers arrive as float64 regardless of the target type).
func loadRunRequestFromConfig(path string) (simapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return simapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return simapi.RunRequest{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	var req simapi.RunRequest
	if v, ok := asString(raw["root_sequence"]); ok {
		req.RootSequence = v
	}
	if v, ok := asInt(raw["root_length"]); ok {
		req.RootLength = v
	}
	if v, ok := asFloats(raw["root_frequencies"]); ok {
		req.RootFrequencies = v
	}
	if v, ok := asString(raw["tree"]); ok {
		req.Tree = v
	}
	if v, ok := asFloats(raw["mutation_rates"]); ok {
		req.MutationRates = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asFloat64(raw["scale"]); ok {
		req.Scale = v
	}
	if v, ok := asBool(raw["no_hierarchy"]); ok {
		req.NoHierarchy = v
	}
	if v, ok := asFloat64(raw["alpha"]); ok {
		req.Alpha = v
	}
	if v, ok := asFloats(raw["category_probs"]); ok {
		req.CategoryProbs = v
	}
	if v, ok := asFloats(raw["category_rates"]); ok {
		req.CategoryRates = v
	}
	if v, ok := asFloat64(raw["invariable"]); ok {
		req.Invariable = v
	}
	if v, ok := asFloats(raw["hyper_probs"]); ok {
		req.HyperProbs = v
	}
	if v, ok := asFloats(raw["hyper_rates"]); ok {
		req.HyperRates = v
	}
	if v, ok := asBool(raw["codon"]); ok {
		req.Codon = v
	}
	if v, ok := asFloat64(raw["omega_alpha"]); ok {
		req.OmegaAlpha = v
	}
	if v, ok := asFloats(raw["omega_category_probs"]); ok {
		req.OmegaCategoryProbs = v
	}
	if v, ok := asFloats(raw["omega_category_rates"]); ok {
		req.OmegaCategoryRates = v
	}
	if v, ok := asBool(raw["create_info"]); ok {
		req.CreateInfo = v
	}
	if v, ok := asBool(raw["create_fasta"]); ok {
		req.CreateFasta = v
	}
	if v, ok := asBool(raw["create_phylip"]); ok {
		req.CreatePhylip = v
	}
	if v, ok := asBool(raw["create_newick"]); ok {
		req.CreateNewick = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func asFloats(v any) ([]float64, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(list))
	for _, item := range list {
		f, ok := item.(float64)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}
