package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"tsp-router/internal/apperr"
	"tsp-router/internal/distance"
	"tsp-router/internal/export"
	"tsp-router/internal/models"
	"tsp-router/internal/planner"
	"tsp-router/internal/server"
	"tsp-router/internal/tour"
)

// matrixFile is the input of "solve --matrix". Row and column 0 is the depot.
type matrixFile struct {
	Locations []string    `json:"locations"`
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations,omitempty"`
}

type solveOptions struct {
	algorithm  string
	matrixPath string
	locations  []string
	xlsxPath   string
	jsonOutput bool
}

func (c *CLI) solveCommand() *cobra.Command {
	var opts solveOptions

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Plan a single tour",
		Long: `Plan a tour either offline from a JSON distance matrix (--matrix) or from
addresses (--location, repeatable) using the configured distance provider.`,
		Example: `  tsp-router solve --matrix distances.json
  tsp-router solve -a kruskal -l "1 Infinite Loop, Cupertino" -l "Stanford, CA" --xlsx tour.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSolve(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", string(models.AlgorithmGreedy), "tour algorithm: greedy or kruskal")
	cmd.Flags().StringVarP(&opts.matrixPath, "matrix", "m", "", "JSON file with locations and a distance matrix")
	cmd.Flags().StringArrayVarP(&opts.locations, "location", "l", nil, "address to visit (repeatable)")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "also write the tour to this XLSX file")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the tour as JSON")
	cmd.MarkFlagsMutuallyExclusive("matrix", "location")

	return cmd
}

func (c *CLI) runSolve(cmd *cobra.Command, opts solveOptions) error {
	algorithm, ok := models.ParseAlgorithm(opts.algorithm)
	if !ok {
		return fmt.Errorf("unknown algorithm %q (want greedy or kruskal)", opts.algorithm)
	}

	var (
		result *models.TourResult
		err    error
	)
	switch {
	case opts.matrixPath != "":
		result, err = solveMatrixFile(algorithm, opts.matrixPath)
	case len(opts.locations) > 0:
		result, err = c.solveLocations(cmd.Context(), algorithm, opts.locations)
	default:
		return fmt.Errorf("either --matrix or --location is required")
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printTour(out, result)
	}

	if opts.xlsxPath != "" {
		if err := writeXLSX(opts.xlsxPath, result); err != nil {
			return err
		}
		if !opts.jsonOutput {
			printDetail(out, "Wrote %s", opts.xlsxPath)
		}
	}
	return nil
}

func solveMatrixFile(algorithm models.Algorithm, path string) (*models.TourResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matrix: %w", err)
	}

	var in matrixFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidDistanceData, err, "parse matrix %s", path)
	}

	distances, err := tour.NewDistanceMatrix(in.Distances)
	if err != nil {
		return nil, err
	}
	matrix := &distance.Matrix{Distances: distances}
	if in.Durations != nil {
		if matrix.Durations, err = tour.NewDistanceMatrix(in.Durations); err != nil {
			return nil, err
		}
	}

	stops := in.Locations
	if len(stops) == 0 {
		stops = make([]string, distances.Size())
		for i := range stops {
			stops[i] = strconv.Itoa(i)
		}
	}
	return planner.Solve(algorithm, stops, matrix)
}

func (c *CLI) solveLocations(ctx context.Context, algorithm models.Algorithm, locations []string) (*models.TourResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	cache, err := server.OpenCache(ctx, cfg.Cache, c.Logger)
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	provider, err := server.NewProvider(cfg.Provider, cache, c.Logger)
	if err != nil {
		return nil, err
	}

	p := planner.New(planner.Options{
		Provider: provider,
		Depot:    cfg.Depot.Address,
		Timeout:  cfg.Provider.Timeout.Duration,
		Logger:   c.Logger,
	})
	return p.Plan(ctx, algorithm, locations)
}

func printTour(w io.Writer, result *models.TourResult) {
	printInfo(w, "%s tour over %d stops", result.Algorithm, len(result.OrderedLocations)-1)
	for k, address := range result.OrderedLocations {
		printStop(w, k, address)
	}
	if result.TotalDistanceMeters != nil {
		printSuccess(w, "Total distance: %.0f m", *result.TotalDistanceMeters)
	}
	if result.TotalDurationSecs != nil {
		printDetail(w, "Total duration: %.0f s", *result.TotalDurationSecs)
	}
}

func writeXLSX(path string, result *models.TourResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteTour(f, result); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
