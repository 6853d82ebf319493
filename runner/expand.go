package runner

import (
	"context"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/notargets/impesconv/options"
	"github.com/notargets/impesconv/report"
	"github.com/notargets/impesconv/sweep"
)

// ExpandTemplate renders the template named by TemplateKey, found in
// TemplateDir, into the file named by TargetKey in TargetDir. Leaves sharing
// a target are rendered once per visit, so it runs in serial. Templates not
// found in TemplateDir are looked up by name in Fallback, when set.
type ExpandTemplate struct {
	sweep.Base
	TemplateKey string
	TargetKey   string
	TemplateDir string
	TargetDir   string
	Engine      report.Engine
	Fs          afero.Fs
	Fallback    afero.Fs
	Logger      hclog.Logger
}

func (e *ExpandTemplate) Call(_ context.Context, o *options.Leaf) (msg string, err error) {
	var (
		tmplName, target string
		fs               = orOS(e.Fs)
		text             []byte
		out              string
	)
	if tmplName, err = o.String(e.TemplateKey); err != nil {
		return
	}
	if target, err = o.String(e.TargetKey); err != nil {
		return
	}
	tmplPath := filepath.Join(e.TemplateDir, tmplName)
	src := fs
	if ok, _ := afero.Exists(fs, tmplPath); !ok {
		if e.Fallback == nil {
			return "", sweep.FileNotFound(tmplPath)
		}
		if ok, _ = afero.Exists(e.Fallback, tmplName); !ok {
			return "", sweep.FileNotFound(tmplPath)
		}
		src, tmplPath = e.Fallback, tmplName
	}
	if text, err = afero.ReadFile(src, tmplPath); err != nil {
		return "", errors.Wrap(err, "read template")
	}
	engine := e.Engine
	if engine == nil {
		engine = report.SimpleEngine{Passes: 2, Logger: e.Logger}
	}
	if out, err = engine.Render(tmplName, string(text), o); err != nil {
		// a template that cannot be filled for this leaf is a leaf-local problem
		return "", sweep.Failed("%s: %v", tmplPath, err)
	}
	targetPath := filepath.Join(e.TargetDir, target)
	if err = fs.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return
	}
	if err = afero.WriteFile(fs, targetPath, []byte(out), 0644); err != nil {
		return "", errors.Wrapf(err, "write %s", targetPath)
	}
	orNull(e.Logger).Debug("expanded template", "template", tmplPath, "target", targetPath)
	return target, nil
}

func orOS(fs afero.Fs) afero.Fs {
	if fs == nil {
		return afero.NewOsFs()
	}
	return fs
}

func orNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}
