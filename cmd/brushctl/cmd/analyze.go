package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zirnworks/Pictaflux/pkg/abr"
)

// NewAnalyzeCmd creates the analyze cobra command
func NewAnalyzeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze brush-pack file structure",
		Long:  "Parses and displays detailed information about a brush pack: container version, resource blocks, decoded samples and descriptor metadata.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			dumpDesc, _ := cmd.Flags().GetBool("dump-descriptor")

			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}
			if filePath == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}
			return runAnalyze(filePath, dumpDesc)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "brush-pack file path to analyze")
	pf.Bool("dump-descriptor", false, "Dump the full descriptor metadata tree")
	return cmd
}

func runAnalyze(filePath string, dumpDesc bool) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	version, blocks, err := abr.Blocks(data)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	fmt.Printf("Container version: %d\n", version)
	if len(blocks) > 0 {
		fmt.Println("\n=== Resource Blocks ===")
		for _, b := range blocks {
			fmt.Printf("%-4s offset=%-8d size=%d\n", b.Key, b.Offset, b.Size)
		}
	}

	brushes, err := abr.Decode(data)
	if err != nil {
		return fmt.Errorf("decode error: %w", err)
	}

	fmt.Printf("\n=== Brushes (%d) ===\n", len(brushes))
	for i, b := range brushes {
		name := b.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("[%d] %s\n", i, name)
		if b.Identifier != "" {
			fmt.Printf("    Identifier: %q\n", b.Identifier)
		}
		fmt.Printf("    Size: %dx%d  Diameter: %d  Spacing: %.2f\n", b.Width, b.Height, b.Diameter, b.Spacing)
		if d := b.Dynamics; d != nil {
			fmt.Printf("    Dynamics: size=%s angle=%s opacity=%s scatter=%t\n",
				d.Size.Source, d.Angle.Source, d.Opacity.Source, d.ScatterEnabled)
		} else {
			fmt.Println("    Dynamics: defaults (no descriptor match)")
		}
	}

	if dumpDesc {
		if tree, ok := abr.DescriptorTree(data); ok {
			fmt.Println("\n=== Descriptor ===")
			fmt.Print(tree.Dump())
		} else {
			fmt.Println("\nNo descriptor block present")
		}
	}
	return nil
}
