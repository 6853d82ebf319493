package runner

import (
	"context"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/notargets/impesconv/options"
	"github.com/notargets/impesconv/sweep"
)

// Clean removes the files matching the glob lists stored under PatternKeys,
// relative to Dir. Keys a leaf does not define are skipped.
type Clean struct {
	sweep.Base
	PatternKeys []string
	Dir         string
	Fs          afero.Fs
	Logger      hclog.Logger
}

func (c *Clean) Call(_ context.Context, o *options.Leaf) (msg string, err error) {
	var (
		fs      = orOS(c.Fs)
		base    = fs
		removed []string
	)
	if c.Dir != "" && c.Dir != "." {
		base = afero.NewBasePathFs(fs, c.Dir)
	}
	iofs := afero.NewIOFS(base)
	for _, key := range c.PatternKeys {
		if !o.Has(key) {
			continue
		}
		var patterns []string
		if patterns, err = o.Strings(key); err != nil {
			if options.IsMissingDependency(err) {
				err = nil
				continue
			}
			return
		}
		for _, pat := range patterns {
			var matches []string
			if matches, err = doublestar.Glob(iofs, filepath.ToSlash(pat)); err != nil {
				return "", errors.Wrapf(err, "glob %s", pat)
			}
			for _, m := range matches {
				if rerr := base.Remove(m); rerr != nil {
					orNull(c.Logger).Warn("remove failed", "file", m, "error", rerr)
					continue
				}
				removed = append(removed, filepath.Join(c.Dir, m))
			}
		}
	}
	for _, r := range removed {
		msg += "\n    removed " + r
	}
	return msg, nil
}
