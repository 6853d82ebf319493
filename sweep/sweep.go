package sweep

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/impesconv/options"
)

// Functor is a unit of work applied to every leaf of a collapsed tree.
// Call returns a short status message, a *Failure for a leaf-local problem,
// or any other error to abort the sweep.
type Functor interface {
	Setup() error
	Call(ctx context.Context, o *options.Leaf) (msg string, err error)
	Teardown() error
}

// ParallelSafe marks a functor that holds no state shared between leaves.
// Only these may be handed to Parallel.
type ParallelSafe interface {
	Functor
	ParallelSafe()
}

// Base gives a functor no-op Setup and Teardown.
type Base struct{}

func (Base) Setup() error { return nil }

func (Base) Teardown() error { return nil }

var ErrSerialOnly = errors.New("this functor is designed to be run in serial only")

type Options struct {
	Out    io.Writer
	Logger hclog.Logger
	Naming options.Naming
	// NProcs is the worker count for Parallel, at least one.
	NProcs int
	// Reverse starts Parallel from the last leaf, which is usually the most
	// expensive one.
	Reverse bool
}

func (opts Options) withDefaults() Options {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.NProcs < 1 {
		opts.NProcs = 1
	}
	return opts
}

type Summary struct {
	Description string
	Visited     int
	Failures    *multierror.Error
	Elapsed     time.Duration
}

func (s *Summary) Failed() int {
	if s.Failures == nil {
		return 0
	}
	return len(s.Failures.Errors)
}

func (s *Summary) Succeeded() int { return s.Visited - s.Failed() }

// Serial applies f to every leaf in collapse order.
func Serial(ctx context.Context, description string, f Functor, tree *options.Tree, opts Options) (s *Summary, err error) {
	var (
		start = time.Now()
	)
	opts = opts.withDefaults()
	s = &Summary{Description: description}
	if err = f.Setup(); err != nil {
		return nil, errors.Wrapf(err, "%s: setup", description)
	}
	fmt.Fprintf(opts.Out, "\n%s\n", description)
	for _, lf := range tree.Collapse() {
		if err = ctx.Err(); err != nil {
			break
		}
		var msg string
		msg, err = f.Call(ctx, lf)
		s.Visited++
		name := lf.Name(opts.Naming)
		if err != nil {
			if !IsFailure(err) {
				err = errors.Wrapf(err, "%s: %s", description, name)
				break
			}
			s.Failures = multierror.Append(s.Failures, errors.Wrap(err, name))
			opts.Logger.Debug("leaf failed", "leaf", name, "error", err)
			fmt.Fprintln(opts.Out, statusLine(name, err.Error(), " -- "))
			err = nil
			continue
		}
		if line := statusLine(name, msg, " -> "); line != "" {
			fmt.Fprintln(opts.Out, line)
		}
	}
	if terr := f.Teardown(); terr != nil && err == nil {
		err = errors.Wrapf(terr, "%s: teardown", description)
	}
	s.Elapsed = time.Since(start)
	opts.Logger.Info("serial sweep done", "description", description,
		"visited", s.Visited, "failed", s.Failed(), "elapsed", s.Elapsed)
	return
}

// Parallel applies f to frozen snapshots of every leaf across opts.NProcs
// workers. No ordering between leaves is guaranteed.
func Parallel(ctx context.Context, description string, f Functor, tree *options.Tree, opts Options) (s *Summary, err error) {
	var (
		start  = time.Now()
		mu     sync.Mutex
		leaves []*options.Leaf
	)
	if _, ok := f.(ParallelSafe); !ok {
		return nil, errors.Wrap(ErrSerialOnly, description)
	}
	opts = opts.withDefaults()
	s = &Summary{Description: description}
	for _, lf := range tree.Collapse() {
		fr, ferr := lf.Freeze()
		if ferr != nil {
			return nil, errors.Wrapf(ferr, "%s: %s", description, lf.Name(opts.Naming))
		}
		leaves = append(leaves, fr)
	}
	if opts.Reverse {
		for i, j := 0, len(leaves)-1; i < j; i, j = i+1, j-1 {
			leaves[i], leaves[j] = leaves[j], leaves[i]
		}
	}
	if err = f.Setup(); err != nil {
		return nil, errors.Wrapf(err, "%s: setup", description)
	}
	fmt.Fprintf(opts.Out, "\n%s with %d processor(s)\n", description, opts.NProcs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.NProcs)
	for _, lf := range leaves {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			name := lf.Name(opts.Naming)
			mu.Lock()
			fmt.Fprintf(opts.Out, "    %s ...\n", name)
			mu.Unlock()
			_, cerr := f.Call(gctx, lf)
			mu.Lock()
			defer mu.Unlock()
			s.Visited++
			if cerr != nil {
				if !IsFailure(cerr) {
					return errors.Wrapf(cerr, "%s: %s", description, name)
				}
				s.Failures = multierror.Append(s.Failures, errors.Wrap(cerr, name))
				opts.Logger.Debug("leaf failed", "leaf", name, "error", cerr)
				fmt.Fprintf(opts.Out, "        %s\n", cerr.Error())
				return nil
			}
			fmt.Fprintf(opts.Out, "        finished %s\n", name)
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if terr := f.Teardown(); terr != nil && err == nil {
		err = errors.Wrapf(terr, "%s: teardown", description)
	}
	s.Elapsed = time.Since(start)
	opts.Logger.Info("parallel sweep done", "description", description,
		"nprocs", opts.NProcs, "visited", s.Visited, "failed", s.Failed(), "elapsed", s.Elapsed)
	return
}

func statusLine(name, msg, sep string) string {
	switch {
	case msg == "":
		return name
	case strings.Contains(msg, "\n"):
		return name + msg
	case name == "":
		return msg
	}
	return name + sep + msg
}
