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
	"github.com/memlens/memlens/pkg/tree"
)

// transformCommand creates the transform command for building spanning trees.
func (c *CLI) transformCommand() *cobra.Command {
	var (
		output   string
		rootID   string
		maxDepth int
	)

	cmd := &cobra.Command{
		Use:   "transform [snapshot.json]",
		Short: "Build the spanning tree from a graph snapshot",
		Long: `Build the spanning tree from a graph snapshot.

The transform command reads a snapshot file (nodes plus directed relationship
links), aggregates parallel relationships per node pair, and runs a
breadth-first traversal from the root. The output is a tree.json file holding
the rooted tree, the cycle edges the traversal skipped, and the orphan nodes
it never reached.

The root defaults to the most connected node; pass --root to override.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTransform(cmd.Context(), args[0], rootID, maxDepth, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.tree.json)")
	cmd.Flags().StringVar(&rootID, "root", "", "root node ID (default: highest-degree node)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "bound traversal depth (0 = unlimited)")

	return cmd
}

// runTransform loads the snapshot, builds the tree, and writes output.
func (c *CLI) runTransform(ctx context.Context, input, rootID string, maxDepth int, output string) error {
	snap, err := graph.ReadSnapshotFile(input)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", input, err)
	}

	p := newProgress(loggerFromContext(ctx))
	result := tree.Transform(snap, tree.Options{RootID: rootID, MaxDepth: maxDepth})
	if result == nil {
		printInfo("Snapshot is empty, nothing to transform")
		return nil
	}
	p.done(fmt.Sprintf("Transformed %d nodes", len(result.ByID)))

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".tree.json"
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Transform complete")
	printFile(outputPath)
	printDetail("%d tree nodes · %d cycle edges · %d orphans",
		len(result.ByID), len(result.CycleEdges), len(result.Orphans))
	printNewline()
	printNextStep("Layout", "memlens layout "+input)

	return nil
}
