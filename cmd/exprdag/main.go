// Command exprdag is a small driver over pkg/dag and pkg/bitblast: it is
// not a solver front-end (no parser, no model construction — spec.md's
// non-goals hold here too) but a way to poke the core and its exporter
// from a shell, the same role cmd/z80opt plays for this repo's teacher
// search engine.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ndrewh/exprdag/internal/btorlog"
	"github.com/ndrewh/exprdag/pkg/bitblast"
	"github.com/ndrewh/exprdag/pkg/dag"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "exprdag",
		Short: "Expression-DAG core driver — build, stress, and bit-blast terms",
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cobra.OnInitialize(func() {
		if verbose {
			btorlog.SetLevel(zerolog.DebugLevel)
		}
	})

	// build command
	var buildScriptPath string
	var rewriteLevel int
	var sortExp bool
	var dotOut string

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a term tree from a batch script and report its shape",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeF, err := openScript(buildScriptPath)
			if err != nil {
				return err
			}
			defer closeF()

			ctx := dag.NewContext(nil, dag.Options{SortExp: sortExp, RewriteLevel: rewriteLevel}, nil)
			root, name, err := buildScript(ctx, f)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}

			stats := ctx.Stats()
			fmt.Printf("root: %s (width %d)\n", name, ctx.Sorts().Width(root.Sort()))
			fmt.Printf("live nodes: %d\n", stats.LiveNodes)
			fmt.Printf("unique table: %d entries / %d buckets\n", stats.UniqueNodes, stats.UniqueBuckets)

			if dotOut != "" {
				out, err := os.Create(dotOut)
				if err != nil {
					return err
				}
				defer out.Close()
				writeDot(out, ctx, root)
				fmt.Printf("wrote dot graph to %s\n", dotOut)
			}

			ctx.Release(root)
			ctx.Teardown()
			return nil
		},
	}
	buildCmd.Flags().StringVar(&buildScriptPath, "script", "", "batch script path (default: stdin)")
	buildCmd.Flags().IntVar(&rewriteLevel, "rewrite-level", 1, "rewriter level (0 disables simplification)")
	buildCmd.Flags().BoolVar(&sortExp, "sort-exp", true, "enable ascending-id sorting of commutative operands")
	buildCmd.Flags().StringVar(&dotOut, "dot", "", "write a Graphviz dot graph of the built term to this path")

	// gc-stress command
	var iterations int
	var chainWidth int

	gcStressCmd := &cobra.Command{
		Use:   "gc-stress",
		Short: "Drive the copy/release lifecycle invariant a large number of times",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := dag.NewContext(nil, dag.DefaultOptions(), nil)
			sort := ctx.Sorts().Bitvec(uint32(chainWidth))
			root := ctx.Var(sort, "x")

			for i := 0; i < iterations; i++ {
				copied := ctx.Copy(root)
				doubled := ctx.Add(copied, copied)
				ctx.Release(copied)
				ctx.Release(doubled)
			}

			before := ctx.Stats().LiveNodes
			ctx.Release(root)
			after := ctx.Stats().LiveNodes
			fmt.Printf("ran %d copy/release iterations\n", iterations)
			fmt.Printf("live nodes before releasing root: %d, after: %d\n", before, after)
			if after != 0 {
				return fmt.Errorf("gc-stress: expected 0 live nodes after final release, got %d", after)
			}
			fmt.Println("OK: no leaked nodes")
			return nil
		},
	}
	gcStressCmd.Flags().IntVar(&iterations, "iterations", 1_000_000, "number of copy/release round trips")
	gcStressCmd.Flags().IntVar(&chainWidth, "width", 8, "bit-vector width of the stressed variable")

	// bitblast command
	var blastScriptPath string

	bitblastCmd := &cobra.Command{
		Use:   "bitblast",
		Short: "Build a term from a script and bit-blast it to a gini AIG circuit",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, closeF, err := openScript(blastScriptPath)
			if err != nil {
				return err
			}
			defer closeF()

			ctx := dag.NewContext(nil, dag.DefaultOptions(), nil)
			root, name, err := buildScript(ctx, f)
			if err != nil {
				return fmt.Errorf("bitblast: %w", err)
			}

			res := bitblast.Export(ctx, root)
			fmt.Printf("root: %s (width %d)\n", name, len(res.Roots[0]))
			fmt.Printf("circuit size: %d AIG nodes\n", res.Circuit.Len())
			fmt.Printf("output literals:")
			for _, lit := range res.Roots[0] {
				fmt.Printf(" %v", lit)
			}
			fmt.Println()

			ctx.Release(root)
			ctx.Teardown()
			return nil
		},
	}
	bitblastCmd.Flags().StringVar(&blastScriptPath, "script", "", "batch script path (default: stdin)")

	rootCmd.AddCommand(buildCmd, gcStressCmd, bitblastCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openScript opens path for reading, or stdin when path is empty; the
// closer is always non-nil (os.Stdin is never actually closed by it when
// path is empty, since Close on stdin would make later reads in the same
// process fail, though exprdag never reads twice).
func openScript(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening script %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
