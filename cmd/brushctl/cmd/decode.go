package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Zirnworks/Pictaflux/pkg/abr"
	"github.com/Zirnworks/Pictaflux/pkg/brush"
)

// NewDecodeCmd creates the decode cobra command
func NewDecodeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a brush pack into presets",
		Long:  "Runs the full import pipeline and reports the resulting presets; optionally writes each tip bitmap as PNG.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			tipsDir, _ := cmd.Flags().GetString("tips-dir")
			if path == "" && len(args) > 0 {
				path = args[0]
			}

			var data []byte
			var err error
			switch path {
			case "":
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			case "-":
				data, err = io.ReadAll(os.Stdin)
			default:
				data, err = os.ReadFile(path)
			}
			if err != nil {
				return err
			}

			presets, err := abr.Import(ctx, data, brush.SoftwareFactory{})
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			type presetOut struct {
				ID       string  `json:"id"`
				Name     string  `json:"name"`
				Diameter int     `json:"diameter"`
				Spacing  float64 `json:"spacing"`
				SizeCtl  string  `json:"size_control"`
			}
			out := make([]presetOut, 0, len(presets))
			for _, p := range presets {
				out = append(out, presetOut{
					ID:       p.ID,
					Name:     p.Name,
					Diameter: p.Tip.Diameter,
					Spacing:  p.Tip.Spacing,
					SizeCtl:  p.Dynamics.Size.Source.String(),
				})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}

			if tipsDir == "" {
				return nil
			}
			if err := os.MkdirAll(tipsDir, 0o755); err != nil {
				return err
			}
			for i, p := range presets {
				img, ok := p.Tip.Image.(*brush.SoftwareImage)
				if !ok || img == nil {
					continue
				}
				f, err := os.Create(filepath.Join(tipsDir, fmt.Sprintf("tip_%03d.png", i)))
				if err != nil {
					return err
				}
				if err := png.Encode(f, img.RGBA()); err != nil {
					f.Close()
					return err
				}
				f.Close()
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "brush-pack file path, or - for stdin")
	pf.String("tips-dir", "", "Directory to write tip bitmaps as PNG")
	return cmd
}
