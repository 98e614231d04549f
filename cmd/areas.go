package cmd

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/petrolab/psengine/internal/areas"
	"github.com/petrolab/psengine/internal/config"
	"github.com/petrolab/psengine/internal/geom"
	"github.com/petrolab/psengine/internal/telemetry"
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Construct divariant areas from the line network",
	Long: "Subdivides the section window by its univariant lines and labels each\n" +
		"face with a stable assemblage where the topology determines one.",
	RunE: runAreas,
}

var identifyCmd = &cobra.Command{
	Use:   "identify <x> <y>",
	Short: "Name the assemblage at a diagram position",
	Args:  cobra.ExactArgs(2),
	RunE:  runIdentify,
}

func init() {
	areasCmd.Flags().Float64("max-extension", 0, "cap on open-end extension in diagram units (0 = to window edge)")
	rootCmd.AddCommand(areasCmd)
	rootCmd.AddCommand(identifyCmd)
}

func buildAreas(cfg config.Config, maxExt float64) (*areas.Areas, error) {
	s, err := loadSection(cfg)
	if err != nil {
		return nil, err
	}
	if maxExt == 0 {
		maxExt = cfg.MaxExtension
	}
	return areas.Build(s, areas.Options{MaxExtension: maxExt}), nil
}

func runAreas(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	maxExt, _ := cmd.Flags().GetFloat64("max-extension")
	ar, err := buildAreas(cfg, maxExt)
	if err != nil {
		return err
	}

	em := newEmitter(cfg)
	defer em.Close()
	_ = em.Emit(telemetry.Event{
		Kind: telemetry.KindAreasBuilt,
		Data: map[string]int{"faces": len(ar.Faces), "fields": len(ar.Fields)},
	})

	names := make([]string, 0, len(ar.Fields))
	for name := range ar.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%d fields\n", len(names))
	for _, name := range names {
		field := ar.Fields[name]
		at := fieldLabel(field)
		fmt.Printf("  %-40s %d polygon(s), area %.4g, label at (%g, %g)\n",
			name, len(field.Polygons), fieldArea(field), at.X, at.Y)
	}

	if unresolved := ar.Unresolved(); len(unresolved) > 0 {
		fmt.Printf("%d unresolved face(s)\n", len(unresolved))
	}
	for _, w := range ar.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func fieldArea(field *areas.Area) float64 {
	var total float64
	for _, poly := range field.Polygons {
		total += geom.SignedArea(poly)
	}
	return total
}

// fieldLabel picks a label position inside the field's largest polygon.
func fieldLabel(field *areas.Area) geom.Point {
	var best areas.Polygon
	bestArea := 0.0
	for _, poly := range field.Polygons {
		if a := math.Abs(geom.SignedArea(poly)); a > bestArea {
			best, bestArea = poly, a
		}
	}
	return best.Interior()
}

func runIdentify(_ *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("bad x %q: %w", args[0], err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("bad y %q: %w", args[1], err)
	}

	ar, err := buildAreas(cfg, 0)
	if err != nil {
		return err
	}
	asm, ok := ar.Identify(geom.Point{X: x, Y: y})
	if !ok {
		fmt.Printf("(%g, %g): no resolved field\n", x, y)
		return nil
	}
	fmt.Printf("(%g, %g): %s\n", x, y, asm.Key())
	return nil
}
