// internal/sasgen/queue.go
package sasgen

import (
	"context"
	"errors"

	"xga-core/products"
	"xga-core/source"
)

// Queue accumulates generation commands for one source. Each row runs
// concurrently; order across rows is not guaranteed either, so dependency
// chains must be joined with Chain before queueing.
type Queue struct {
	rows [][]Command
}

// AddRow appends one row of mutually independent commands.
func (q *Queue) AddRow(cmds ...Command) {
	if len(cmds) > 0 {
		q.rows = append(q.rows, cmds)
	}
}

// Add appends a single command as its own row.
func (q *Queue) Add(c Command) { q.AddRow(c) }

// Len counts queued commands.
func (q *Queue) Len() int {
	n := 0
	for _, row := range q.rows {
		n += len(row)
	}
	return n
}

// Rows exposes the queued layout for execution.
func (q *Queue) Rows() [][]Command { return q.rows }

// QueueMissing appends the command only when the source does not already
// hold a usable product under the key the command would produce. This is the
// idempotency contract: re-running an identical request against a populated
// registry queues nothing. Commands whose kind cannot be generated are
// rejected up front instead of at drain time.
func (q *Queue) QueueMissing(s *source.Source, c Command) (bool, error) {
	if c.Kind != "" {
		key, err := extraKeyFor(c)
		if err != nil {
			return false, err
		}
		k := source.Key{ObsID: c.ObsID, Inst: c.Inst, ExtraKey: key, Kind: c.Kind}
		if s.Registry().Has(k) {
			return false, nil
		}
	}
	q.Add(c)
	return true, nil
}

// extraKeyFor computes the storage key a command's product will carry, from
// a throwaway product built without streams or output.
func extraKeyFor(c Command) (string, error) {
	p, err := build(Command{
		Kind: c.Kind, ObsID: c.ObsID, Inst: c.Inst,
		LoKeV: c.LoKeV, HiKeV: c.HiKeV, SpecKey: c.SpecKey,
		PSFBins: c.PSFBins, PSFModel: c.PSFModel,
	}, "", "")
	if err != nil {
		return "", err
	}
	return p.StorageKey(), nil
}

// Generate drains the queue through the pool and hands every finished
// product to the source, in the submission goroutine only. Invocation errors
// and insertion errors are joined and returned after everything has been
// attempted.
func Generate(ctx context.Context, r Runner, s *source.Source, q *Queue, workers int) error {
	results, execErr := Execute(ctx, r, q.Rows(), workers)
	q.rows = nil

	var errs []error
	if execErr != nil {
		errs = append(errs, execErr)
	}
	for _, res := range results {
		if res.Product == nil {
			continue
		}
		if err := s.AddProduct(res.Product); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UsableOf filters the products out of a result set, dropping side-effect
// commands and failed invocations but keeping unusable products, whose
// verdicts callers may still want to inspect.
func UsableOf(results []Result) (usable, unusable []products.Product) {
	for _, res := range results {
		if res.Product == nil {
			continue
		}
		if res.Product.Usable() {
			usable = append(usable, res.Product)
		} else {
			unusable = append(unusable, res.Product)
		}
	}
	return usable, unusable
}
