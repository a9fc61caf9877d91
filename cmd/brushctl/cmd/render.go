package cmd

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zirnworks/Pictaflux/pkg/abr"
	"github.com/Zirnworks/Pictaflux/pkg/brush"
	"github.com/Zirnworks/Pictaflux/pkg/stroke"
)

// NewRenderCmd creates the render cobra command
func NewRenderCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a test stroke with a decoded brush",
		Long:  "Imports a brush pack, selects one preset, sweeps a pressure-varying S-curve stroke across a software canvas, and writes the result as PNG.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			out, _ := cmd.Flags().GetString("out")
			index, _ := cmd.Flags().GetInt("brush")
			size, _ := cmd.Flags().GetInt("size")
			if path == "" && len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			presets, err := abr.Import(ctx, data, brush.SoftwareFactory{})
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			if len(presets) == 0 {
				return fmt.Errorf("pack contains no decodable brushes")
			}
			if index < 0 || index >= len(presets) {
				return fmt.Errorf("brush index %d out of bounds (0-%d)", index, len(presets)-1)
			}

			canvas := stroke.NewImageCanvas(size, size)
			canvas.Fill(color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})

			engine := stroke.NewEngine(canvas)
			engine.SetBrush(presets[index])
			engine.SetColor(color.NRGBA{A: 0xFF})

			// S-curve sweep with pressure ramping up and back down.
			steps := 200
			begin := stroke.Point{X: float64(size) * 0.1, Y: float64(size) * 0.5}
			engine.BeginStroke(begin, 0.1, stroke.Tilt{})
			for i := 1; i <= steps; i++ {
				t := float64(i) / float64(steps)
				p := stroke.Point{
					X: float64(size) * (0.1 + 0.8*t),
					Y: float64(size) * (0.5 + 0.25*math.Sin(t*2*math.Pi)),
				}
				engine.AddPoint(p, math.Sin(t*math.Pi), stroke.Tilt{})
			}
			engine.EndStroke()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			return png.Encode(f, canvas.Image())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "brush-pack file path")
	pf.StringP("out", "o", "stroke.png", "Output PNG path")
	pf.Int("brush", 0, "Index of the preset to render with")
	pf.Int("size", 512, "Canvas size in pixels")
	return cmd
}
