package report

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/notargets/impesconv/options"
)

// Lookup resolves template variables. *options.Leaf is a Lookup.
type Lookup interface {
	Get(key string) (any, error)
}

// Values is a Lookup over a plain map.
type Values map[string]any

func (v Values) Get(key string) (any, error) {
	if x, ok := v[key]; ok {
		return x, nil
	}
	return nil, &options.MissingDependencyError{Key: key}
}

// Engine renders template text against a set of variables.
type Engine interface {
	Render(name, text string, vars Lookup) (string, error)
}

// SimpleEngine substitutes $KEY and ${KEY} placeholders. Placeholders that
// cannot be resolved are left in place, so a later pass can resolve
// placeholders introduced by an earlier one. Any still left after the last
// pass are logged at warn.
type SimpleEngine struct {
	Passes int
	Logger hclog.Logger
}

func (e SimpleEngine) Render(name, text string, vars Lookup) (out string, err error) {
	out = text
	for pass := 0; pass < max(e.Passes, 1); pass++ {
		var (
			perr error
			prev = out
		)
		out = os.Expand(out, func(key string) string {
			if perr != nil {
				return ""
			}
			v, gerr := vars.Get(key)
			switch {
			case gerr == nil:
				return toText(v)
			case options.IsMissingDependency(gerr):
				return "${" + key + "}"
			}
			perr = gerr
			return ""
		})
		if perr != nil {
			return "", errors.Wrapf(perr, "render %s", name)
		}
		if out == prev {
			break
		}
	}
	if left := placeholders(out); len(left) != 0 && e.Logger != nil {
		e.Logger.Warn("unresolved placeholders", "template", name, "keys", left)
	}
	return
}

func placeholders(text string) (keys []string) {
	seen := make(map[string]bool)
	os.Expand(text, func(key string) string {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		return ""
	})
	sort.Strings(keys)
	return
}

// TemplateEngine renders text/template syntax with the sprig functions plus
//
//	opt KEY      the value of KEY
//	raise MSG    abort the render
//	relop OP     "lt" or "gt" as an escaped XML comparison
//
// Missing map keys are errors. Each pass re-renders the output of the one
// before while it still holds actions.
type TemplateEngine struct {
	Passes int
}

func (e TemplateEngine) Render(name, text string, vars Lookup) (out string, err error) {
	out = text
	for pass := 0; pass < max(e.Passes, 1); pass++ {
		if pass > 0 && !strings.Contains(out, "{{") {
			break
		}
		var (
			tmpl *template.Template
			buf  bytes.Buffer
		)
		tmpl, err = template.New(name).
			Funcs(funcMap(vars)).
			Option("missingkey=error").
			Parse(out)
		if err != nil {
			return "", errors.Wrapf(err, "parse %s", name)
		}
		if err = tmpl.Execute(&buf, vars); err != nil {
			return "", errors.Wrapf(err, "render %s", name)
		}
		out = buf.String()
	}
	return
}

func funcMap(vars Lookup) template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["opt"] = func(key string) (any, error) { return vars.Get(key) }
	fm["raise"] = func(msg string) (string, error) { return "", errors.New(msg) }
	fm["relop"] = func(op string) (string, error) {
		switch op {
		case "lt":
			return "&lt;", nil
		case "gt":
			return "&gt;", nil
		}
		return "", errors.Errorf("unknown relational operator %q", op)
	}
	return fm
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		return strings.Join(x, " ")
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
