// Command decodetest decodes a single still image and prints the palette,
// the probe classes and the tile matrix.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"grid-decoder/internal/capture"
	"grid-decoder/internal/config"
	"grid-decoder/internal/keystone"
	"grid-decoder/internal/palette"
	"grid-decoder/internal/render"
	"grid-decoder/internal/scanner"
	"grid-decoder/internal/tiles"
	"grid-decoder/pkg/geometry"
)

func main() {
	imagePath := flag.String("image", "", "Path to captured image (TIFF, PNG, or JPEG)")
	configPath := flag.String("config", "", "Path to JSON config")
	corners := flag.String("corners", "", "Quad corners x0,y0,x1,y1,x2,y2,x3,y3 (bottom-left, top-left, top-right, bottom-right)")
	calibrate := flag.Bool("calibrate", false, "Sample the palette from the calibration swatches first")
	classesPNG := flag.String("classes-png", "", "Write the probe class map to this PNG")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: decodetest -image <path> [-config scanner.json] [-corners x0,y0,...] [-calibrate]")
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *corners != "" {
		q, err := parseQuad(*corners)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bad -corners: %v\n", err)
			os.Exit(1)
		}
		cfg.Surface.Corners = q
	}

	src, err := capture.OpenImageFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	engine, err := scanner.New(cfg, src, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create scanner: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(formatMapping(engine.Controller().Mapping()))

	ctx := context.Background()
	if *calibrate {
		engine.SetCalibrating(true)
		if _, err := engine.Cycle(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Calibration incomplete: %v\n", err)
		}
		engine.SetCalibrating(false)
	}

	printPalette(engine.Palette())

	res, err := engine.Cycle(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
		os.Exit(1)
	}

	classes := engine.Classes()
	fmt.Printf("\nProbe classes (%dx%d, top row first, ? = missed surface):\n", classes.NumX, classes.NumY)
	for iy := classes.NumY - 1; iy >= 0; iy-- {
		var b strings.Builder
		for ix := 0; ix < classes.NumX; ix++ {
			b.WriteByte(tiles.Symbol(classes.At(ix, iy)))
		}
		fmt.Println(b.String())
	}

	dict := engine.Dictionary()
	fmt.Printf("\nTile matrix (%dx%d blocks, %d known):\n%s", res.Matrix.Cols, res.Matrix.Rows, res.Matrix.Known(), res.Matrix)
	fmt.Printf("\nTiles:\n")
	for id, name := range dict.Names() {
		fmt.Printf("  %2d %s\n", id, name)
	}

	if *classesPNG != "" {
		img := render.ClassMap(classes, engine.Palette(), 1)
		img = render.Scale(img, classes.NumX*16, classes.NumY*16, false)
		if err := render.WritePNG(*classesPNG, img); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write class map: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote %s\n", *classesPNG)
	}
}

// formatMapping describes the corner correction: the corners, the
// per-corner weights and the homogeneous (u*q, v*q, q) triples.
func formatMapping(m *keystone.Mapping) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Corners: %v\n", m.Corners)
	fmt.Fprintf(&b, "Weights: q0=%.4f q1=%.4f q2=%.4f q3=%.4f (s=%.4f t=%.4f)\n",
		m.Weights[0], m.Weights[1], m.Weights[2], m.Weights[3], m.S, m.T)
	b.WriteString("Homogeneous:")
	for i, h := range m.Homogeneous() {
		fmt.Fprintf(&b, " c%d=(%.4f, %.4f, %.4f)", i, h[0], h[1], h[2])
	}
	b.WriteString("\n")
	return b.String()
}

func printPalette(p palette.Palette) {
	fmt.Printf("\nPalette:\n")
	for i, e := range p {
		fmt.Printf("  %c %-8s %s\n", tiles.Symbol(i), e.Name, e.Color)
	}
}

func parseQuad(s string) (geometry.Quad, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 8 {
		return geometry.Quad{}, fmt.Errorf("want 8 numbers, got %d", len(parts))
	}
	var v [8]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Quad{}, err
		}
		v[i] = f
	}
	return geometry.NewQuad(
		geometry.NewPoint2D(v[0], v[1]),
		geometry.NewPoint2D(v[2], v[3]),
		geometry.NewPoint2D(v[4], v[5]),
		geometry.NewPoint2D(v[6], v[7]),
	), nil
}
