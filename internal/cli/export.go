package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memlens/memlens/pkg/graph"
	"github.com/memlens/memlens/pkg/render/nodelink"
	"github.com/memlens/memlens/pkg/tree"
)

// Supported export formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// exportCommand creates the export command for debug renderings of the tree.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		output   string
		format   string
		rootID   string
		detailed bool
		cycles   bool
		orphans  bool
	)

	cmd := &cobra.Command{
		Use:   "export [snapshot.json]",
		Short: "Render the spanning tree as DOT or SVG",
		Long: `Render the spanning tree as DOT or SVG.

The export command builds the spanning tree and writes a Graphviz rendering
of it, useful for inspecting what the transform produced: which edges became
tree edges, which were set aside as cycles, and which nodes ended up
orphaned. This is a 2D debug view, not the 3D layout itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := nodelink.Options{
				Detailed:    detailed,
				ShowCycles:  cycles,
				ShowOrphans: orphans,
			}
			return c.runExport(cmd.Context(), args[0], rootID, format, opts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", formatSVG, "output format: svg (default), dot")
	cmd.Flags().StringVar(&rootID, "root", "", "root node ID (default: highest-degree node)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include relationship types and counts")
	cmd.Flags().BoolVar(&cycles, "cycles", true, "include cycle edges (dashed)")
	cmd.Flags().BoolVar(&orphans, "orphans", true, "include orphan nodes")

	return cmd
}

// runExport builds the tree and writes the requested rendering.
func (c *CLI) runExport(ctx context.Context, input, rootID, format string, opts nodelink.Options, output string) error {
	if format != formatDOT && format != formatSVG {
		return fmt.Errorf("unsupported format %q (expected dot or svg)", format)
	}

	snap, err := graph.ReadSnapshotFile(input)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", input, err)
	}

	result := tree.Transform(snap, tree.Options{RootID: rootID})
	if result == nil {
		printInfo("Snapshot is empty, nothing to export")
		return nil
	}

	dot := nodelink.ToDOT(result, opts)

	var data []byte
	switch format {
	case formatDOT:
		data = []byte(dot)
	case formatSVG:
		p := newProgress(loggerFromContext(ctx))
		data, err = nodelink.RenderSVG(dot)
		if err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
		p.done("Rendered SVG")
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + "." + format
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Export complete")
	printFile(outputPath)
	printDetail("%d tree nodes · %d cycle edges · %d orphans",
		len(result.ByID), len(result.CycleEdges), len(result.Orphans))

	return nil
}
