package cli

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/legsim/emu"
	"github.com/sarchlab/legsim/loader"
	"github.com/sarchlab/legsim/timing/config"
	"github.com/sarchlab/legsim/timing/core"
	"github.com/sarchlab/legsim/timing/trace"
)

type runOptions struct {
	configPath string
	maxCycles  uint64
	traceDir   string
	dump       bool
	regs       bool
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Run a program image on the timing core.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImage(cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "",
		"Path to a timing configuration JSON file")
	cmd.Flags().Uint64Var(&opts.maxCycles, "max-cycles", 0,
		"Stop after this many cycles (overrides the configuration)")
	cmd.Flags().StringVar(&opts.traceDir, "trace", "",
		"Directory to write a SQLite event trace into")
	cmd.Flags().BoolVar(&opts.dump, "dump", false,
		"Print the pipeline registers when the run ends")
	cmd.Flags().BoolVar(&opts.regs, "regs", false,
		"Print the architectural registers when the run ends")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}

	return config.LoadConfig(path)
}

func runImage(out io.Writer, imagePath string, opts *runOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	if opts.maxCycles > 0 {
		cfg.MaxCycles = opts.maxCycles
	}

	prog, err := loader.Load(imagePath)
	if err != nil {
		return err
	}

	memory := emu.NewMemory()
	prog.LoadInto(memory)

	c := core.MakeBuilder().
		WithConfig(cfg).
		WithMemory(memory).
		Build("Core")

	var recorder *trace.Recorder
	if opts.traceDir != "" {
		recorder, err = trace.NewRecorder(opts.traceDir)
		if err != nil {
			return err
		}
		c.AcceptHook(recorder)
		_, _ = fmt.Fprintf(out, "Trace: %s\n", recorder.Path())
	}

	runErr := c.Run()
	stats := c.Stats()

	printStats(out, imagePath, stats)

	if opts.regs {
		_, _ = fmt.Fprint(out, c.RegFile().String())
	}

	if opts.dump {
		_, _ = fmt.Fprint(out, c.Dump())
	}

	if recorder != nil {
		if err := recorder.WriteSummary(summary(stats)); err != nil {
			return err
		}
		if err := recorder.Close(); err != nil {
			return err
		}
	}

	return errors.Wrapf(runErr, "run %s", imagePath)
}

func summary(s core.Stats) map[string]float64 {
	return map[string]float64{
		"cycles":            float64(s.Cycles),
		"instructions":      float64(s.Instructions),
		"cpi":               s.CPI(),
		"data_stalls":       float64(s.DataStalls),
		"control_bubbles":   float64(s.ControlBubbles),
		"mem_stalls":        float64(s.MemStalls),
		"fetch_stalls":      float64(s.FetchStalls),
		"flushes":           float64(s.Flushes),
		"cancelled_fetches": float64(s.CancelledFetches),
		"branch_accuracy":   s.Predictor.Accuracy(),
		"icache_hit_rate":   s.ICache.HitRate(),
		"dcache_hit_rate":   s.DCache.HitRate(),
	}
}

func printStats(out io.Writer, name string, s core.Stats) {
	_, _ = fmt.Fprintf(out, "\nProgram: %s\n", name)
	_, _ = fmt.Fprintf(out, "Cycles:               %d\n", s.Cycles)
	_, _ = fmt.Fprintf(out, "Instructions retired: %d\n", s.Instructions)
	_, _ = fmt.Fprintf(out, "CPI:                  %.3f\n", s.CPI())
	_, _ = fmt.Fprintf(out, "Data stalls:          %d\n", s.DataStalls)
	_, _ = fmt.Fprintf(out, "Control bubbles:      %d\n", s.ControlBubbles)
	_, _ = fmt.Fprintf(out, "Memory stalls:        %d\n", s.MemStalls)
	_, _ = fmt.Fprintf(out, "Fetch stalls:         %d\n", s.FetchStalls)
	_, _ = fmt.Fprintf(out, "Flushes:              %d\n", s.Flushes)
	_, _ = fmt.Fprintf(out, "Cancelled fetches:    %d\n", s.CancelledFetches)
	_, _ = fmt.Fprintf(out, "Branch accuracy:      %.1f%% (%d/%d)\n",
		s.Predictor.Accuracy(), s.Predictor.Correct, s.Predictor.Resolved)
	_, _ = fmt.Fprintf(out, "I-cache:              %d hits, %d misses, %d cancels\n",
		s.ICache.Hits, s.ICache.Misses, s.ICache.Cancels)
	_, _ = fmt.Fprintf(out, "D-cache:              %d hits, %d misses, %d evictions\n",
		s.DCache.Hits, s.DCache.Misses, s.DCache.Evictions)
}
