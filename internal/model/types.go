package model

import "strconv"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// MutationEvent is one substitution on a branch. Position is a 0-based
// nucleotide position in the genome; Time is elapsed time within the branch.
type MutationEvent struct {
	Position int     `json:"pos"`
	Time     float64 `json:"time"`
	From     string  `json:"from"`
	To       string  `json:"to"`
}

// String renders the event in the compact from-position-to form used by the
// mutation-list and annotated-newick outputs, with a 1-based position.
func (e MutationEvent) String() string {
	return e.From + strconv.Itoa(e.Position+1) + e.To
}

// NodeMutations is the mutation history of one phylogeny node's branch.
type NodeMutations struct {
	Name   string          `json:"name"`
	IsLeaf bool            `json:"is_leaf"`
	Events []MutationEvent `json:"events"`
}

// SiteInfo is the per-site diagnostic summary written to the info table.
// Position is a nucleotide position. Category is -1 for sites whose rate was
// drawn from a continuous distribution (or frozen to zero). HyperCategory 0
// means the site is not hypermutable. Omega is meaningful in codon mode only.
type SiteInfo struct {
	Position      int     `json:"pos"`
	Rate          float64 `json:"rate"`
	Category      int     `json:"category"`
	HyperCategory int     `json:"hyper_category"`
	HyperFrom     string  `json:"hyper_from,omitempty"`
	HyperTo       string  `json:"hyper_to,omitempty"`
	Omega         float64 `json:"omega,omitempty"`
}

// LeafSequence is a fully reconstructed sequence at a phylogeny leaf.
type LeafSequence struct {
	Name     string `json:"name"`
	Sequence string `json:"sequence"`
}

// RunRecord summarizes one completed simulation run.
type RunRecord struct {
	VersionedRecord
	ID           string  `json:"id"`
	CreatedAtUTC string  `json:"created_at_utc"`
	Seed         int64   `json:"seed"`
	Scale        float64 `json:"scale"`
	Codon        bool    `json:"codon"`
	Hierarchical bool    `json:"hierarchical"`
	GenomeLength int     `json:"genome_length"`
	Nodes        int     `json:"nodes"`
	Leaves       int     `json:"leaves"`
	Events       int     `json:"events"`
	Settings     string  `json:"settings,omitempty"`
}
