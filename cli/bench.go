package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/legsim/benchmarks"
)

func newBenchCommand() *cobra.Command {
	var (
		configPath string
		format     string
		quick      bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in microbenchmarks and check them against the emulator.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			hc := benchmarks.DefaultConfig()
			hc.Timing = cfg
			if cfg.MaxCycles == 0 {
				cfg.MaxCycles = benchmarks.DefaultConfig().Timing.MaxCycles
			}
			hc.Output = cmd.OutOrStdout()

			h := benchmarks.NewHarness(hc)
			if quick {
				h.AddBenchmarks(benchmarks.GetCoreBenchmarks())
			} else {
				h.AddBenchmarks(benchmarks.GetMicrobenchmarks())
			}

			results := h.RunAll()

			switch format {
			case "text":
				h.PrintResults(results)
			case "csv":
				h.PrintCSV(results)
			case "json":
				if err := h.WriteJSON(results); err != nil {
					return err
				}
			default:
				return errors.Errorf("unknown format %q", format)
			}

			failed := 0
			for _, r := range results {
				if !r.Passed() {
					failed++
				}
			}
			if failed > 0 {
				return errors.Errorf("%d of %d benchmarks failed", failed, len(results))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a timing configuration JSON file")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, csv or json")
	cmd.Flags().BoolVar(&quick, "quick", false, "Run only the core benchmark set")

	return cmd
}
