package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"phylosim/internal/model"
	simapi "phylosim/pkg/phylosim"
)

func printRunSummary(w io.Writer, s simapi.RunSummary, elapsed time.Duration) {
	header(w, "simulation complete")
	fmt.Fprintf(w, "run:     %s\n", s.RunID)
	fmt.Fprintf(w, "genome:  %s sites\n", humanize.Comma(int64(s.GenomeLength)))
	fmt.Fprintf(w, "tree:    %s nodes, %s leaves\n", humanize.Comma(int64(s.Nodes)), humanize.Comma(int64(s.Leaves)))
	fmt.Fprintf(w, "events:  %s mutations\n", humanize.Comma(int64(s.Events)))
	fmt.Fprintf(w, "elapsed: %s\n", elapsed.Round(time.Millisecond))
	if len(s.Files) > 0 {
		fmt.Fprintf(w, "output:  %s\n", s.OutputDir)
		for _, f := range s.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
}

func printRuns(w io.Writer, runs []model.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	header(w, fmt.Sprintf("%d runs", len(runs)))
	for _, r := range runs {
		mode := "hierarchical"
		if !r.Hierarchical {
			mode = "flat"
		}
		if r.Codon {
			mode += "+codon"
		}
		fmt.Fprintf(w, "%s  %s  seed=%d  %s sites  %s events  %s\n",
			r.ID, r.CreatedAtUTC, r.Seed,
			humanize.Comma(int64(r.GenomeLength)), humanize.Comma(int64(r.Events)), mode)
	}
}

func printRunRecord(w io.Writer, r model.RunRecord) {
	header(w, "run "+r.ID)
	fmt.Fprintf(w, "created:      %s\n", r.CreatedAtUTC)
	fmt.Fprintf(w, "seed:         %d\n", r.Seed)
	fmt.Fprintf(w, "scale:        %g\n", r.Scale)
	fmt.Fprintf(w, "codon:        %v\n", r.Codon)
	fmt.Fprintf(w, "hierarchical: %v\n", r.Hierarchical)
	fmt.Fprintf(w, "genome:       %s sites\n", humanize.Comma(int64(r.GenomeLength)))
	fmt.Fprintf(w, "tree:         %s nodes, %s leaves\n", humanize.Comma(int64(r.Nodes)), humanize.Comma(int64(r.Leaves)))
	fmt.Fprintf(w, "events:       %s mutations\n", humanize.Comma(int64(r.Events)))
}

// header underlines section titles, but only on interactive terminals so
// piped output stays plain.
func header(w io.Writer, title string) {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		fmt.Fprintf(w, "\x1b[1m%s\x1b[0m\n", title)
		return
	}
	fmt.Fprintf(w, "%s\n", title)
}
