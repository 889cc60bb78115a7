// Package phylosim is the public face of the simulator: it assembles a run
// from a request (reference genome, substitution model, phylogeny), executes
// the Gillespie traversal, writes the requested artifacts, and persists the
// results through the configured store.
package phylosim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"phylosim/internal/model"
	"phylosim/internal/phylo"
	"phylosim/internal/sim"
	"phylosim/internal/storage"
	"phylosim/internal/writers"
)

const (
	defaultOutputDir = "runs"
	defaultDBPath    = "phylosim.db"
)

type Options struct {
	StoreKind string
	DBPath    string
	OutputDir string
}

type Client struct {
	store     storage.Store
	outputDir string
}

// RunRequest describes one simulation. Zero values select the documented
// defaults; either RootSequence or RootLength must be set, and Tree must
// hold a newick string.
type RunRequest struct {
	// Reference genome: an explicit sequence, or a random genome of
	// RootLength sites drawn from RootFrequencies (uniform when nil).
	RootSequence    string
	RootLength      int
	RootFrequencies []float64

	// Tree is the phylogeny in newick syntax.
	Tree string

	// MutationRates is a row-major 4x4 matrix over ACGT (diagonal
	// ignored). Nil selects the SARS-CoV-2 UNREST defaults.
	MutationRates []float64

	Seed  int64
	Scale float64

	// NoHierarchy selects the flat category model instead of the
	// hierarchical rate tree.
	NoHierarchy bool

	// Rate heterogeneity: either a continuous mean-1 gamma with shape
	// Alpha, or discrete categories. Invariable is the fraction of sites
	// frozen at rate zero.
	Alpha         float64
	CategoryProbs []float64
	CategoryRates []float64
	Invariable    float64

	// Hypermutation: probability and rate multiplier per category.
	HyperProbs []float64
	HyperRates []float64

	// Codon model.
	Codon              bool
	OmegaAlpha         float64
	OmegaCategoryProbs []float64
	OmegaCategoryRates []float64

	// Output toggles.
	CreateInfo   bool
	CreateFasta  bool
	CreatePhylip bool
	CreateNewick bool
}

type RunSummary struct {
	RunID        string
	OutputDir    string
	GenomeLength int
	Nodes        int
	Leaves       int
	Events       int
	Files        []string
}

type RunsRequest struct {
	Limit int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
	Files     []string
}

var (
	ErrNoTree     = errors.New("run request has no phylogeny")
	ErrNoGenome   = errors.New("run request has neither a root sequence nor a root length")
	ErrRunMissing = errors.New("run not found")
)

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = defaultOutputDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{store: store, outputDir: outputDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run validates the request, builds the rate model, simulates evolution
// along the phylogeny, writes the requested artifact files, and persists
// the run. All input validation happens before any simulation work; a
// failed setup leaves no partial output.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Scale <= 0 {
		req.Scale = 1
	}
	if req.Seed == 0 {
		req.Seed = 1
	}
	if req.Tree == "" {
		return RunSummary{}, ErrNoTree
	}
	if req.RootSequence == "" && req.RootLength <= 0 {
		return RunSummary{}, ErrNoGenome
	}

	tree, err := phylo.Parse(req.Tree)
	if err != nil {
		return RunSummary{}, fmt.Errorf("parse phylogeny: %w", err)
	}
	if err := tree.Validate(); err != nil {
		return RunSummary{}, fmt.Errorf("validate phylogeny: %w", err)
	}

	setup, err := buildSimulation(req)
	if err != nil {
		return RunSummary{}, fmt.Errorf("setup: %w", err)
	}

	rng := rand.New(rand.NewSource(req.Seed))
	collect := req.CreateFasta || req.CreatePhylip
	results, err := sim.Traverse(rng, setup.lineage, tree, setup.seq, sim.Options{CollectSequences: collect})
	if err != nil {
		return RunSummary{}, err
	}
	if err := setup.check(); err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	nodes := make([]model.NodeMutations, 0, len(results))
	var leafSeqs []model.LeafSequence
	events := 0
	leaves := 0
	for _, r := range results {
		nodes = append(nodes, model.NodeMutations{Name: r.Name, IsLeaf: r.IsLeaf, Events: r.Events})
		events += len(r.Events)
		if r.IsLeaf {
			leaves++
			if collect {
				leafSeqs = append(leafSeqs, model.LeafSequence{Name: r.Name, Sequence: r.Sequence})
			}
		}
	}

	dir := filepath.Join(c.outputDir, runID)
	files, err := writeArtifacts(dir, req, tree, nodes, setup.sites, leafSeqs, len(setup.seq))
	if err != nil {
		return RunSummary{}, err
	}

	run := model.RunRecord{
		ID:           runID,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
		Seed:         req.Seed,
		Scale:        req.Scale,
		Codon:        req.Codon,
		Hierarchical: !req.NoHierarchy,
		GenomeLength: len(setup.seq),
		Nodes:        len(results),
		Leaves:       leaves,
		Events:       events,
	}
	storage.Stamp(&run)
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveMutations(ctx, runID, nodes); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveSiteInfo(ctx, runID, setup.sites); err != nil {
		return RunSummary{}, err
	}
	if len(leafSeqs) > 0 {
		if err := c.store.SaveLeafSequences(ctx, runID, leafSeqs); err != nil {
			return RunSummary{}, err
		}
	}

	return RunSummary{
		RunID:        runID,
		OutputDir:    dir,
		GenomeLength: len(setup.seq),
		Nodes:        len(results),
		Leaves:       leaves,
		Events:       events,
		Files:        files,
	}, nil
}

// Runs lists persisted runs, most recent first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	return c.store.ListRuns(ctx, req.Limit)
}

// Export rewrites a stored run's artifacts into a directory.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	runID := req.RunID
	if req.Latest {
		runs, err := c.store.ListRuns(ctx, 1)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(runs) == 0 {
			return ExportSummary{}, ErrRunMissing
		}
		runID = runs[0].ID
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("%w: %s", ErrRunMissing, runID)
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = filepath.Join(c.outputDir, runID)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return ExportSummary{}, err
	}

	var files []string
	if nodes, ok, err := c.store.GetMutations(ctx, runID); err != nil {
		return ExportSummary{}, err
	} else if ok {
		path := filepath.Join(outDir, "mutations.txt")
		if err := writeFile(path, func(f *os.File) error { return writers.WriteMutations(f, nodes) }); err != nil {
			return ExportSummary{}, err
		}
		files = append(files, path)
	}
	if sites, ok, err := c.store.GetSiteInfo(ctx, runID); err != nil {
		return ExportSummary{}, err
	} else if ok {
		path := filepath.Join(outDir, "sites.info")
		if err := writeFile(path, func(f *os.File) error { return writers.WriteInfo(f, sites, run.Codon) }); err != nil {
			return ExportSummary{}, err
		}
		files = append(files, path)
	}
	if leaves, ok, err := c.store.GetLeafSequences(ctx, runID); err != nil {
		return ExportSummary{}, err
	} else if ok && len(leaves) > 0 {
		path := filepath.Join(outDir, "alignment.fasta")
		if err := writeFile(path, func(f *os.File) error { return writers.WriteFasta(f, leaves) }); err != nil {
			return ExportSummary{}, err
		}
		files = append(files, path)
	}

	return ExportSummary{RunID: runID, Directory: outDir, Files: files}, nil
}

func writeArtifacts(dir string, req RunRequest, tree *phylo.Node, nodes []model.NodeMutations,
	sites []model.SiteInfo, leafSeqs []model.LeafSequence, seqLen int) ([]string, error) {

	wantAny := req.CreateInfo || req.CreateFasta || req.CreatePhylip || req.CreateNewick
	var files []string
	if !wantAny {
		return files, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "mutations.txt")
	if err := writeFile(path, func(f *os.File) error { return writers.WriteMutations(f, nodes) }); err != nil {
		return nil, err
	}
	files = append(files, path)

	if req.CreateInfo {
		path := filepath.Join(dir, "sites.info")
		if err := writeFile(path, func(f *os.File) error { return writers.WriteInfo(f, sites, req.Codon) }); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	if req.CreateFasta {
		path := filepath.Join(dir, "alignment.fasta")
		if err := writeFile(path, func(f *os.File) error { return writers.WriteFasta(f, leafSeqs) }); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	if req.CreatePhylip {
		path := filepath.Join(dir, "alignment.phy")
		if err := writeFile(path, func(f *os.File) error { return writers.WritePhylip(f, leafSeqs, seqLen) }); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	if req.CreateNewick {
		byName := make(map[string][]model.MutationEvent, len(nodes))
		for _, n := range nodes {
			byName[n.Name] = n.Events
		}
		path := filepath.Join(dir, "annotated.nwk")
		if err := os.WriteFile(path, []byte(writers.AnnotatedNewick(tree, byName)+"\n"), 0o644); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
