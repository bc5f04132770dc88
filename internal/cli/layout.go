package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memlens/memlens/pkg/graph"
	"github.com/memlens/memlens/pkg/pipeline"
)

// layoutCommand creates the layout command for computing radial 3D layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output   string
		noCache  bool
		expanded string
	)
	opts := c.pipelineOptions()

	cmd := &cobra.Command{
		Use:   "layout [snapshot.json]",
		Short: "Compute the radial 3D layout for a graph snapshot",
		Long: `Compute the radial 3D layout for a graph snapshot.

The layout command runs the full pipeline: spanning-tree transform, density
clustering of crowded nodes, radial position assignment with de-collision,
link classification, and cycle connections. The output is a layout.json file
with one flat list of renderable nodes and links, positioned in 3D.

Identical inputs always produce identical output; results are cached locally
by snapshot content hash for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Expanded = parseExpanded(expanded)
			return c.runPipeline(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	// Transform flags
	cmd.Flags().StringVar(&opts.RootID, "root", "", "root node ID (default: highest-degree node)")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", opts.MaxDepth, "bound traversal depth (0 = unlimited)")

	// Layout flags
	cmd.Flags().StringVar(&opts.SelectedID, "selected", "", "selected node ID (its path to the root stays visible)")
	cmd.Flags().StringVar(&expanded, "expanded", "", "comma-separated node IDs to expand")
	cmd.Flags().IntVar(&opts.MaxChildren, "max-children", opts.MaxChildren, "visible children per expanded node (0 = default)")
	cmd.Flags().BoolVar(&opts.ShowLabels, "labels", opts.ShowLabels, "reserve room for full node labels")

	return cmd
}

// runPipeline loads the snapshot, runs the pipeline, and writes output.
func (c *CLI) runPipeline(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	snap, err := graph.ReadSnapshotFile(input)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", input, err)
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	result, err := runner.Execute(ctx, snap, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if result.Layout == nil {
		printInfo("Snapshot is empty, nothing to lay out")
		return nil
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".layout.json"
	}

	data, err := json.MarshalIndent(result.Layout, "", "  ")
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(snap.Nodes), len(snap.Links), result.CacheInfo.LayoutHit)
	printNewline()
	printNextStep("Inspect", "memlens export "+input)

	return nil
}
