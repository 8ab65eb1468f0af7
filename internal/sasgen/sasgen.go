// internal/sasgen/sasgen.go

// Package sasgen queues and executes external toolchain commands through a
// bounded worker pool. Commands queued in the same row run concurrently;
// dependency chains are joined into one shell-sequential command string
// before submission. Workers only produce immutable results; registry
// insertion stays with the caller, after the pool has drained.
package sasgen

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"xga-core/products"
	"xga-core/storekey"
)

// Runner invokes one toolchain command and captures its streams. The command
// may be a shell-sequential chain.
type Runner interface {
	Invoke(ctx context.Context, cmd string) (stdout, stderr string, err error)
}

// ShellRunner executes commands through the system shell.
type ShellRunner struct{}

func (ShellRunner) Invoke(ctx context.Context, cmd string) (string, string, error) {
	var out, errb strings.Builder
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Stdout = &out
	c.Stderr = &errb
	err := c.Run()
	// a non-zero exit with diagnostics on stderr is the normal failure mode;
	// the diagnostics decide the product's usability
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		err = nil
	}
	return out.String(), errb.String(), err
}

// Command is one generation-queue entry: the shell command plus everything
// needed to construct the typed product from its output.
type Command struct {
	Cmd   string
	ObsID string
	Inst  string

	// Kind of the expected product; empty for side-effect-only commands
	// (calibration index builds and the like), which produce no product.
	Kind    products.Kind
	OutPath string

	// type-specific extras
	LoKeV, HiKeV float64
	SpecKey      *storekey.SpectrumKey
	PSFBins      int
	PSFModel     string
}

// Result pairs one executed command with its constructed product. Product is
// nil for side-effect commands; Err carries invocation failures, never
// diagnostic ones (those live on the product's usability verdict).
type Result struct {
	Command Command
	Product products.Product
	Err     error
}

// Chain joins dependency-ordered commands into one shell-sequential string,
// so intra-chain ordering survives concurrent submission.
func Chain(cmds ...string) string {
	return strings.Join(cmds, " && ")
}

// TempDir returns the per-invocation working directory, namespaced by
// observation, instrument and energy key so concurrent tasks never collide.
func TempDir(root, obsID, inst, extraKey string) string {
	return filepath.Join(root, fmt.Sprintf("%s_%s_%s_temp", obsID, inst, extraKey))
}

// WrapWithTempDir brackets a command chain with its working-directory
// lifecycle: a defensive pre-removal of any stale directory from an
// interrupted prior run, creation, and cleanup, all inside the chain itself
// rather than in the orchestrator.
func WrapWithTempDir(dir, cmd string) string {
	return Chain(
		fmt.Sprintf("rm -rf %s", dir),
		fmt.Sprintf("mkdir -p %s", dir),
		fmt.Sprintf("cd %s", dir),
		cmd,
		fmt.Sprintf("cd .. && rm -rf %s", dir),
	)
}

// DefaultWorkers is the pool bound when the configuration does not set one:
// 90% of the machine's CPUs, minimum one.
func DefaultWorkers() int {
	n := runtime.NumCPU() * 9 / 10
	if n < 1 {
		n = 1
	}
	return n
}

// build constructs the typed product from a finished command. A missing
// output path is not an error here; the product records it as unusable and
// sibling commands are unaffected. An empty kind is a side-effect command
// and builds nothing; kinds with no generating constructor (ratemaps are
// derived, never generated) are an error.
func build(c Command, stdout, stderr string) (products.Product, error) {
	switch c.Kind {
	case "":
		return nil, nil
	case products.KindImage:
		return products.NewImage(c.OutPath, c.ObsID, c.Inst, stdout, stderr, c.Cmd, c.LoKeV, c.HiKeV), nil
	case products.KindExpMap:
		return products.NewExpMap(c.OutPath, c.ObsID, c.Inst, stdout, stderr, c.Cmd, c.LoKeV, c.HiKeV), nil
	case products.KindEvents:
		return products.NewEventList(c.OutPath, c.ObsID, c.Inst, stdout, stderr, c.Cmd), nil
	case products.KindSpectrum:
		key := storekey.SpectrumKey{}
		if c.SpecKey != nil {
			key = *c.SpecKey
		}
		return products.NewSpectrum(c.OutPath, c.ObsID, c.Inst, stdout, stderr, c.Cmd, key), nil
	case products.KindPSF:
		return products.NewPSFGrid(c.OutPath, c.ObsID, c.Inst, stdout, stderr, c.Cmd, c.PSFBins, c.PSFModel), nil
	}
	return nil, fmt.Errorf("no generating constructor for %s products", c.Kind)
}

// Execute runs every queued row through the pool and returns all results in
// submission order. One failing invocation does not abort its siblings;
// invocation errors are collected and returned joined, after the whole pool
// has drained. There are no timeouts: a hung invocation holds its slot until
// the context is cancelled.
func Execute(ctx context.Context, r Runner, rows [][]Command, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	n := 0
	for _, row := range rows {
		n += len(row)
	}
	results := make([]Result, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	idx := 0
	for _, row := range rows {
		for _, c := range row {
			i, cmd := idx, c
			idx++
			g.Go(func() error {
				stdout, stderr, err := r.Invoke(ctx, cmd.Cmd)
				res := Result{Command: cmd, Err: err}
				if err == nil {
					res.Product, res.Err = build(cmd, stdout, stderr)
				}
				results[i] = res
				// never abort siblings; errors surface after the drain
				return nil
			})
		}
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("command %q for %s/%s: %w",
				res.Command.Cmd, res.Command.ObsID, res.Command.Inst, res.Err))
		}
	}
	return results, errors.Join(errs...)
}
