// Package pipeline is the Go analogue of demos/jobdemo/jobdemo.py: an
// active-learning-style demo workflow chaining the boot/compute/train/sample
// templates through a runner.Runner and a clerk.Clerk, end to end. It
// exists both as a runnable demo and as an integration test exercising
// pkg/template, pkg/job, pkg/runner and pkg/clerk together.
package pipeline

import (
	"fmt"

	"github.com/reproducible-reporting/parman/pkg/clerk"
	"github.com/reproducible-reporting/parman/pkg/future"
	"github.com/reproducible-reporting/parman/pkg/job"
	"github.com/reproducible-reporting/parman/pkg/metafunc"
	"github.com/reproducible-reporting/parman/pkg/runner"
	_ "github.com/reproducible-reporting/parman/templates"
)

// Config tunes the demo pipeline, mirroring jobdemo.py's module-level
// constants (BOOT_SIZE, SAMPLE_SIZE, COMMITTEE_SIZE, TEMPERATURES,
// NUM_GENERATIONS).
type Config struct {
	BootSize      int
	SampleSize    int
	CommitteeSize int
	Temperatures  []int
	Generations   int
	Pause         float64
}

// DefaultConfig returns jobdemo.py's own constants.
func DefaultConfig() Config {
	return Config{
		BootSize:      15,
		SampleSize:    15,
		CommitteeSize: 3,
		Temperatures:  []int{300, 400},
		Generations:   3,
		Pause:         0.1,
	}
}

// Run drives the full pipeline through r, reading/writing job artifacts
// through c, and returns the last generation's trained committee (a slice of
// apitype.FilePath, one model per committee member). It does not call
// r.Shutdown(): callers that want to reuse r for more work call Shutdown
// themselves once done with it.
func Run(r runner.Runner, c clerk.Clerk, cfg Config) ([]any, error) {
	configs, err := boot(r, c, cfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: boot: %w", err)
	}

	examples, err := compute(r, c, cfg, 0, configs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: gen 0 compute: %w", err)
	}

	models, err := train(r, c, cfg, 0, examples)
	if err != nil {
		return nil, fmt.Errorf("pipeline: gen 0 train: %w", err)
	}

	for gen := 1; gen < cfg.Generations; gen++ {
		temperature := cfg.Temperatures[(gen-1)%len(cfg.Temperatures)]

		sampled, err := sample(r, c, cfg, gen, models, temperature)
		if err != nil {
			return nil, fmt.Errorf("pipeline: gen %d sample: %w", gen, err)
		}

		computed, err := compute(r, c, cfg, gen, sampled)
		if err != nil {
			return nil, fmt.Errorf("pipeline: gen %d compute: %w", gen, err)
		}
		examples = append(examples, computed...)

		models, err = train(r, c, cfg, gen, examples)
		if err != nil {
			return nil, fmt.Errorf("pipeline: gen %d train: %w", gen, err)
		}
	}

	return models, nil
}

// call builds a Closure from a job template bound to locator and submits it
// through r, the analogue of jobdemo.py's bare job(template, locator, ...)
// call syntax. Its return value is r's raw promise (a *future.Handle under
// runner.WorkerPool, the already-resolved result under runner.Serial);
// await blocks on it.
func call(r runner.Runner, template, locator string, c clerk.Clerk, kwargs map[string]any) (any, error) {
	j, err := job.FromTemplate(template)
	if err != nil {
		return nil, err
	}
	closure := metafunc.New(j, job.NewArgs(c, locator, "run", kwargs, nil))
	return r.Call(closure)
}

// await resolves a value returned by call: a no-op under runner.Serial
// (already a concrete value), a blocking wait under runner.WorkerPool
// (a *future.Handle).
func await(v any) (any, error) {
	h, ok := v.(*future.Handle)
	if !ok {
		return v, nil
	}
	return h.Result(nil)
}

// asSequence awaits v and asserts it structured into a sequence result (the
// shape boot's and sample's []apitype.FilePath mocks derive).
func asSequence(label string, v any) ([]any, error) {
	resolved, err := await(v)
	if err != nil {
		return nil, err
	}
	seq, ok := resolved.([]any)
	if !ok {
		return nil, fmt.Errorf("pipeline: %s result has unexpected shape %T", label, resolved)
	}
	return seq, nil
}

// boot submits the single boot job and returns its configs, the analogue of
// jobdemo.py's `job("templates/boot", "g00/boot", pause=pause,
// boot_size=BOOT_SIZE)`.
func boot(r runner.Runner, c clerk.Clerk, cfg Config) ([]any, error) {
	result, err := call(r, "templates/boot", "g00/boot", c, map[string]any{
		"pause":     cfg.Pause,
		"boot_size": cfg.BootSize,
	})
	if err != nil {
		return nil, err
	}
	return asSequence("boot", result)
}

// compute submits one compute job per config, fanning out under
// g<gen>/compute/<index>, the analogue of jobdemo.py's compute(igen,
// configs) loop. Every job is submitted before any is awaited, so a
// concurrent runner.Runner overlaps their execution.
func compute(r runner.Runner, c clerk.Clerk, cfg Config, gen int, configs []any) ([]any, error) {
	pending := make([]any, len(configs))
	for i, config := range configs {
		locator := fmt.Sprintf("g%02d/compute/%03d", gen, i)
		result, err := call(r, "templates/compute", locator, c, map[string]any{
			"pause":  cfg.Pause,
			"config": config,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", locator, err)
		}
		pending[i] = result
	}

	examples := make([]any, len(pending))
	for i, result := range pending {
		resolved, err := await(result)
		if err != nil {
			return nil, fmt.Errorf("g%02d/compute/%03d: %w", gen, i, err)
		}
		examples[i] = resolved
	}
	return examples, nil
}

// train submits one train job per committee member, each seeded
// differently over the same accumulated examples, the analogue of
// jobdemo.py's train(igen, examples) committee loop.
func train(r runner.Runner, c clerk.Clerk, cfg Config, gen int, examples []any) ([]any, error) {
	pending := make([]any, cfg.CommitteeSize)
	for i := range cfg.CommitteeSize {
		locator := fmt.Sprintf("g%02d/train/%03d", gen, i)
		result, err := call(r, "templates/train", locator, c, map[string]any{
			"pause":    cfg.Pause,
			"examples": examples,
			"seed":     i,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", locator, err)
		}
		pending[i] = result
	}

	models := make([]any, len(pending))
	for i, result := range pending {
		resolved, err := await(result)
		if err != nil {
			return nil, fmt.Errorf("g%02d/train/%03d: %w", gen, i, err)
		}
		models[i] = resolved
	}
	return models, nil
}

// sample submits the single sample job for generation gen, drawing
// SampleSize new configs from the current committee at temperature, the
// analogue of jobdemo.py's sample(igen, models) call.
func sample(r runner.Runner, c clerk.Clerk, cfg Config, gen int, models []any, temperature int) ([]any, error) {
	locator := fmt.Sprintf("g%02d/sample", gen)
	result, err := call(r, "templates/sample", locator, c, map[string]any{
		"pause":       cfg.Pause,
		"models":      models,
		"temperature": temperature,
		"sample_size": cfg.SampleSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", locator, err)
	}
	return asSequence("sample", result)
}
