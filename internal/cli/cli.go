// Package cli builds parman's Cobra command tree: run the demo pipeline
// end to end, or inspect an existing results directory's status.
//
// Command Structure:
//
//	parman                   # Root command
//	├── run                  # Run the demo pipeline
//	│   └── --config, -c     # Specify config file
//	└── status                # Inspect a results directory
//	    └── --config, -c
//
// Configuration Management:
//
//	Uses YAML format config file (default: configs/default.yaml).
//	Configuration sections: results (where job output lives), runner
//	(worker pool sizing/scheduling), pipeline (demo tuning knobs),
//	metrics (Prometheus exposition).
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reproducible-reporting/parman/internal/metrics"
	"github.com/reproducible-reporting/parman/internal/pipeline"
	"github.com/reproducible-reporting/parman/pkg/clerk"
	"github.com/reproducible-reporting/parman/pkg/runner"
	"github.com/spf13/cobra"
)

var (
	configFile string
	log        = slog.Default()
)

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "parman",
		Short: "parman: a closure-scheduling job materialization engine",
		Long: `parman turns (template, locator, kwargs) calls into cached,
restartable work directories and runs them through a worker pool that
respects their data dependencies.`,
		Version: "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo pipeline",
		Long:  "Drive the boot/compute/train/sample demo pipeline to completion against the configured results directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline()
		},
	}
	return cmd
}

func runPipeline() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Info("Starting pipeline", "config", configFile, "results_dir", cfg.Results.Dir)

	collector := metrics.NewCollector()
	if cfg.Metrics.Enabled {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port)
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				log.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	pool := runner.NewWorkerPool(runner.WorkerPoolOptions{
		Workers:  cfg.Runner.Workers,
		Schedule: cfg.Runner.Schedule,
	})
	r := newMeteredRunner(pool, collector)

	c := clerk.NewLocal(cfg.Results.Dir)

	pcfg := pipeline.Config{
		BootSize:      cfg.Pipeline.BootSize,
		SampleSize:    cfg.Pipeline.SampleSize,
		CommitteeSize: cfg.Pipeline.CommitteeSize,
		Temperatures:  cfg.Pipeline.Temperatures,
		Generations:   cfg.Pipeline.Generations,
		Pause:         cfg.Pipeline.PauseSeconds,
	}

	models, err := pipeline.Run(r, c, pcfg)
	if err != nil {
		_ = r.Shutdown()
		return fmt.Errorf("pipeline failed: %w", err)
	}
	if err := r.Shutdown(); err != nil {
		return fmt.Errorf("pipeline finished but runner shutdown reported an error: %w", err)
	}

	log.Info("Pipeline finished", "committee_size", len(models))
	for i, m := range models {
		fmt.Printf("model[%d]: %v\n", i, m)
	}
	return nil
}

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show results directory status",
		Long:  "Summarize the job directories found under the configured results directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus()
		},
	}
	return cmd
}

func showStatus() error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("parman status")
	fmt.Printf("  config:       %s\n", configFile)
	fmt.Printf("  results dir:  %s\n", cfg.Results.Dir)

	jobs, completed, err := walkResults(cfg.Results.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("  no results directory yet (run 'parman run' first)")
			return nil
		}
		return fmt.Errorf("failed to inspect results directory: %w", err)
	}

	fmt.Printf("  job directories: %d\n", jobs)
	fmt.Printf("  completed:       %d\n", completed)
	if cfg.Metrics.Enabled {
		fmt.Printf("  metrics:         http://localhost:%d/metrics\n", cfg.Metrics.Port)
	} else {
		fmt.Println("  metrics:         disabled")
	}
	return nil
}

// walkResults counts job work directories (any directory containing a
// kwargs.json) under root, and how many of those also have a result.json.
func walkResults(root string) (jobs, completed int, err error) {
	if _, statErr := os.Stat(root); statErr != nil {
		return 0, 0, statErr
	}
	err = walkDir(root, &jobs, &completed)
	return jobs, completed, err
}

func walkDir(dir string, jobs, completed *int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, "kwargs.json")); err == nil {
		*jobs++
		if _, err := os.Stat(filepath.Join(dir, "result.json")); err == nil {
			*completed++
		}
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := walkDir(filepath.Join(dir, entry.Name()), jobs, completed); err != nil {
				return err
			}
		}
	}
	return nil
}
