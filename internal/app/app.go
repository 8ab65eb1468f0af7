// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"xga-core/source"
	"xga-core/units"

	"xga/internal/cli"
	"xga/internal/config"
	"xga/internal/nh"
	"xga/internal/version"
	"xga/internal/writers"
	"xga/internal/xspec"
)

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("xga")
	fs.SetOutput(io.Discard)

	if len(argv) == 0 {
		_, _ = cli.ParseArgs(fs, []string{"-h"})
		fs.SetOutput(outw)
		fs.Usage()
		if err := outw.Flush(); writers.IsBrokenPipe(err) {
			return 0
		} else if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 3
		}
		return 0
	}

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(outw)
			fs.Usage()
			if e := outw.Flush(); writers.IsBrokenPipe(e) {
				return 0
			} else if e != nil {
				_, _ = fmt.Fprintln(stderr, e)
				return 3
			}
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err)
		fs.SetOutput(outw)
		fs.Usage()
		if e := outw.Flush(); writers.IsBrokenPipe(e) {
			return 0
		} else if e != nil {
			_, _ = fmt.Fprintln(stderr, e)
			return 3
		}
		return 2
	}

	if opts.Version {
		_, _ = fmt.Fprintf(outw, "xga version %s\n", version.Version)
		if e := outw.Flush(); writers.IsBrokenPipe(e) {
			return 0
		} else if e != nil {
			_, _ = fmt.Fprintln(stderr, e)
			return 3
		}
		return 0
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 2
		}
	}
	slog.SetDefault(cfg.Logger(stderr))

	src, err := source.New(opts.Name, opts.RA, opts.Dec, opts.Redshift, units.DefaultCosmology)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	for _, o := range opts.Obs {
		src.AssociateObs(o.ObsID, o.Insts...)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	if opts.Discover {
		var loader source.FitLoader
		if opts.ReadFits {
			loader = xspec.Loader{}
		}
		n, err := src.DiscoverExisting(cfg.OutputDir, loader)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 1
		}
		slog.Info("discovery complete", "source", src.Name(), "attached", n)
	}

	if opts.LookupNH {
		avg, weighted, err := nh.Lookup(parent, nh.Tool{Bin: cfg.NHBinary}, opts.RA, opts.Dec)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 1
		}
		src.SetNH(avg, weighted)
		slog.Info("column density", "source", src.Name(), "weighted_cm2", weighted)
	}

	if opts.JSON {
		err = writers.WriteJSONL(outw, src)
	} else {
		err = writers.WriteSummary(outw, src)
	}
	if err != nil && !writers.IsBrokenPipe(err) {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	if e := outw.Flush(); writers.IsBrokenPipe(e) {
		return 0
	} else if e != nil {
		_, _ = fmt.Fprintln(stderr, e)
		return 3
	}
	return 0
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
