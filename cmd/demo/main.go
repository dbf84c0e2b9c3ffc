// Command demo runs the active-learning pipeline (internal/pipeline)
// standalone, without the full parman Cobra CLI — a quick way to watch
// boot/compute/train/sample run end to end against a local results
// directory. Ported from cmd/demo/main.go, which drove the teacher's
// crash-recovery scenario against internal/controller; that scenario has
// no equivalent here since WAL-based recovery is out of scope for this
// project (spec.md's Non-goals).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/reproducible-reporting/parman/internal/pipeline"
	"github.com/reproducible-reporting/parman/pkg/clerk"
	"github.com/reproducible-reporting/parman/pkg/runner"
)

func main() {
	resultsDir := "results"
	if len(os.Args) > 1 {
		resultsDir = os.Args[1]
	}

	fmt.Printf("Running demo pipeline into %q...\n", resultsDir)

	c := clerk.NewLocal(resultsDir)
	r := runner.NewWorkerPool(runner.WorkerPoolOptions{Workers: 4})

	start := time.Now()
	models, err := pipeline.Run(r, c, pipeline.DefaultConfig())
	if shutdownErr := r.Shutdown(); err == nil {
		err = shutdownErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Pipeline finished in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("✓ Final committee has %d models:\n", len(models))
	for i, m := range models {
		fmt.Printf("  - model[%d]: %v\n", i, m)
	}
}
