package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"phylosim/internal/storage"
	simapi "phylosim/pkg/phylosim"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return errors.New(msg + "\nusage: phylosimctl <run|runs|show|export> [flags]")
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "phylosim.db", "sqlite database path")
	outDir := fs.String("out", "runs", "artifact output directory")
	configPath := fs.String("config", "", "JSON run configuration")

	treeFile := fs.String("tree-file", "", "newick phylogeny file")
	tree := fs.String("tree", "", "newick phylogeny string")
	rootFile := fs.String("root-file", "", "reference genome file (raw nucleotides or fasta)")
	root := fs.String("root", "", "reference genome string")
	rootLength := fs.Int("root-length", 0, "random reference genome length")
	seed := fs.Int64("seed", 1, "random seed")
	scale := fs.Float64("scale", 1, "overall rate scale factor")
	noHierarchy := fs.Bool("no-hierarchy", false, "use the flat category model")
	alpha := fs.Float64("alpha", 0, "continuous gamma shape for site rates")
	invariable := fs.Float64("invariable", 0, "proportion of invariable sites")
	categoryProbs := fs.String("category-probs", "", "comma-separated category probabilities")
	categoryRates := fs.String("category-rates", "", "comma-separated category rates")
	hyperProbs := fs.String("hyper-probs", "", "comma-separated hypermutation probabilities")
	hyperRates := fs.String("hyper-rates", "", "comma-separated hypermutation multipliers")
	codon := fs.Bool("codon", false, "simulate under the codon model")
	omegaAlpha := fs.Float64("omega-alpha", 0, "gamma shape for codon omegas")
	mutationRates := fs.String("mutation-rates", "", "16 comma-separated UNREST matrix entries")
	createInfo := fs.Bool("create-info", true, "write the per-site info table")
	createFasta := fs.Bool("create-fasta", false, "write the leaf alignment as fasta")
	createPhylip := fs.Bool("create-phylip", false, "write the leaf alignment as phylip")
	createNewick := fs.Bool("create-newick", false, "write the mutation-annotated newick")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var req simapi.RunRequest
	if *configPath != "" {
		loaded, err := loadRunRequestFromConfig(*configPath)
		if err != nil {
			return err
		}
		req = loaded
	}

	if *tree != "" {
		req.Tree = *tree
	}
	if *treeFile != "" {
		data, err := os.ReadFile(*treeFile)
		if err != nil {
			return err
		}
		req.Tree = strings.TrimSpace(string(data))
	}
	if *root != "" {
		req.RootSequence = *root
	}
	if *rootFile != "" {
		seq, err := readSequenceFile(*rootFile)
		if err != nil {
			return err
		}
		req.RootSequence = seq
	}
	if *rootLength > 0 {
		req.RootLength = *rootLength
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["seed"] || req.Seed == 0 {
		req.Seed = *seed
	}
	if set["scale"] || req.Scale == 0 {
		req.Scale = *scale
	}
	if *noHierarchy {
		req.NoHierarchy = true
	}
	if *alpha > 0 {
		req.Alpha = *alpha
	}
	if *invariable > 0 {
		req.Invariable = *invariable
	}
	if *codon {
		req.Codon = true
	}
	if *omegaAlpha > 0 {
		req.OmegaAlpha = *omegaAlpha
	}
	var err error
	if req.CategoryProbs, err = mergeFloats(req.CategoryProbs, *categoryProbs); err != nil {
		return fmt.Errorf("category-probs: %w", err)
	}
	if req.CategoryRates, err = mergeFloats(req.CategoryRates, *categoryRates); err != nil {
		return fmt.Errorf("category-rates: %w", err)
	}
	if req.HyperProbs, err = mergeFloats(req.HyperProbs, *hyperProbs); err != nil {
		return fmt.Errorf("hyper-probs: %w", err)
	}
	if req.HyperRates, err = mergeFloats(req.HyperRates, *hyperRates); err != nil {
		return fmt.Errorf("hyper-rates: %w", err)
	}
	if req.MutationRates, err = mergeFloats(req.MutationRates, *mutationRates); err != nil {
		return fmt.Errorf("mutation-rates: %w", err)
	}
	if set["create-info"] || *configPath == "" {
		req.CreateInfo = *createInfo
	}
	if *createFasta {
		req.CreateFasta = true
	}
	if *createPhylip {
		req.CreatePhylip = true
	}
	if *createNewick {
		req.CreateNewick = true
	}

	client, err := simapi.New(simapi.Options{StoreKind: *storeKind, DBPath: *dbPath, OutputDir: *outDir})
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Init(ctx); err != nil {
		return err
	}

	start := time.Now()
	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	printRunSummary(os.Stdout, summary, time.Since(start))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "phylosim.db", "sqlite database path")
	limit := fs.Int("limit", 20, "maximum runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := simapi.New(simapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Init(ctx); err != nil {
		return err
	}

	runs, err := client.Runs(ctx, simapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	printRuns(os.Stdout, runs)
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "phylosim.db", "sqlite database path")
	runID := fs.String("run", "", "run id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("show: -run is required")
	}

	client, err := simapi.New(simapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Init(ctx); err != nil {
		return err
	}

	runs, err := client.Runs(ctx, simapi.RunsRequest{})
	if err != nil {
		return err
	}
	for _, r := range runs {
		if r.ID == *runID {
			printRunRecord(os.Stdout, r)
			return nil
		}
	}
	return fmt.Errorf("run not found: %s", *runID)
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "phylosim.db", "sqlite database path")
	runID := fs.String("run", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	out := fs.String("out-dir", "", "destination directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" && !*latest {
		return errors.New("export: pass -run or -latest")
	}

	client, err := simapi.New(simapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.Export(ctx, simapi.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *out})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "exported run %s to %s (%d files)\n", summary.RunID, summary.Directory, len(summary.Files))
	return nil
}

// mergeFloats overlays a comma-separated flag value onto a config-provided
// slice; the flag wins when set.
func mergeFloats(existing []float64, flagValue string) ([]float64, error) {
	if flagValue == "" {
		return existing, nil
	}
	parts := strings.Split(flagValue, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// readSequenceFile accepts either a raw nucleotide file or a single-record
// fasta; header and whitespace are stripped.
func readSequenceFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		b.WriteString(line)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no sequence data in %s", path)
	}
	return b.String(), nil
}
