package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/notargets/impesconv/options"
	"github.com/notargets/impesconv/sweep"
)

// RunProgram runs the command line found under ArgsKey in WorkDir, once its
// prerequisite files exist. The command may be a list of words or a single
// shell-quoted string. A nonzero exit leaves the error and the captured
// stderr in <target>.err.
type RunProgram struct {
	sweep.Base
	ArgsKey          string
	PrerequisitesKey string
	TargetNameKey    string
	WorkDir          string
	// Fs is only used for the prerequisite checks and error files; the
	// program itself always runs on the real filesystem.
	Fs     afero.Fs
	Logger hclog.Logger
}

func (r *RunProgram) ParallelSafe() {}

func (r *RunProgram) Call(ctx context.Context, o *options.Leaf) (msg string, err error) {
	var (
		args   []string
		target string
		fs     = orOS(r.Fs)
	)
	if args, err = commandLine(o, r.ArgsKey); err != nil {
		return
	}
	if len(args) == 0 {
		return "", errors.Errorf("%s is empty", r.ArgsKey)
	}
	if target, err = o.String(r.TargetNameKey); err != nil {
		return
	}
	if r.PrerequisitesKey != "" && o.Has(r.PrerequisitesKey) {
		var prereqs []string
		if prereqs, err = o.Strings(r.PrerequisitesKey); err != nil {
			return
		}
		for _, p := range prereqs {
			p = filepath.Join(r.WorkDir, p)
			if ok, _ := afero.Exists(fs, p); !ok {
				return "", sweep.FileNotFound(p)
			}
		}
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.WorkDir
	cmd.Stderr = &stderr
	orNull(r.Logger).Debug("running", "target", target, "argv", args, "dir", r.WorkDir)
	if runErr := cmd.Run(); runErr != nil {
		errName := filepath.Join(r.WorkDir, target+".err")
		report := fmt.Sprintf("Command '%v' failed: %v\n%s", args, runErr, stderr.String())
		if err = afero.WriteFile(fs, errName, []byte(report), 0644); err != nil {
			return "", errors.Wrapf(err, "write %s", errName)
		}
		return "", sweep.Failed("FAILURE: see %s", errName)
	}
	return target, nil
}

func commandLine(o *options.Leaf, key string) (args []string, err error) {
	var v any
	if v, err = o.Get(key); err != nil {
		return
	}
	if s, ok := v.(string); ok {
		if args, err = shellwords.Parse(s); err != nil {
			return nil, errors.Wrapf(err, "parse %s", key)
		}
		return
	}
	return o.Strings(key)
}
