package runtime

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/risor-io/risor/object"
	"gopkg.in/yaml.v3"

	"github.com/jward/copper/internal/ast"
	"github.com/jward/copper/internal/config"
	"github.com/jward/copper/internal/cop"
	"github.com/jward/copper/internal/pattern"
)

// ScriptCop is a cop whose detection, and optionally its correction, is
// a Risor script.
//
// The detection script sees the dispatched node as the global `node`.
// Its final value decides the outcome: a falsy value reports nothing,
// a string reports that message and any other truthy value reports the
// manifest's message. The correction script returns the replacement text
// for the node's range.
type ScriptCop struct {
	cop.Base
	rt         *Runtime
	path       string
	source     string
	correction string
	message    string
	patterns   map[string]*pattern.Pattern
	funcs      map[string]any
}

// NewScriptCop loads the scripts named by spec and compiles its
// patterns. A malformed pattern fails with a wrapped *pattern.SyntaxError.
func (r *Runtime) NewScriptCop(spec config.ScriptCop) (*ScriptCop, error) {
	if spec.Name == "" {
		return nil, errors.New("runtime: script cop without a name")
	}
	if len(spec.NodeTypes) == 0 {
		return nil, fmt.Errorf("runtime: cop %s: %w", spec.Name, cop.ErrNoNodeTypes)
	}
	sev := cop.Warning
	if spec.Severity != "" {
		var err error
		if sev, err = cop.ParseSeverity(spec.Severity); err != nil {
			return nil, fmt.Errorf("runtime: cop %s: %w", spec.Name, err)
		}
	}

	patterns := make(map[string]*pattern.Pattern, len(spec.Patterns))
	for name, src := range spec.Patterns {
		p, err := pattern.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("runtime: cop %s: pattern %s: %w", spec.Name, name, err)
		}
		patterns[name] = p
	}

	source, err := r.LoadScript(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("runtime: cop %s: %w", spec.Name, err)
	}
	var correction string
	if spec.Correction != "" {
		if correction, err = r.LoadScript(spec.Correction); err != nil {
			return nil, fmt.Errorf("runtime: cop %s: %w", spec.Name, err)
		}
	}

	message := spec.Message
	if message == "" {
		message = spec.Name + " offense."
	}
	return &ScriptCop{
		Base: cop.Base{
			RuleName:        spec.Name,
			DefaultSeverity: sev,
			Types:           spec.NodeTypes,
			Desc:            message,
		},
		rt:         r,
		path:       spec.Path,
		source:     source,
		correction: correction,
		message:    message,
		patterns:   patterns,
		funcs: map[string]any{
			"matches":  makeMatchesFn(r.patterns, patterns),
			"captures": makeCapturesFn(r.patterns, patterns),
		},
	}, nil
}

// Correctable reports whether the cop carries a correction script.
func (s *ScriptCop) Correctable() bool { return s.correction != "" }

func (s *ScriptCop) globals(n *ast.Node) map[string]any {
	g := make(map[string]any, len(s.funcs)+1)
	for k, v := range s.funcs {
		g[k] = v
	}
	g["node"] = wrapNode(n)
	return g
}

// Check runs the detection script against n.
func (s *ScriptCop) Check(ctx *cop.Context, n *ast.Node) error {
	res, err := s.rt.eval(ctx.Context(), s.source, s.path, s.globals(n))
	if err != nil {
		return err
	}
	msg, ok := verdict(res, s.message)
	if !ok {
		return nil
	}

	var fix cop.Correction
	if s.correction != "" {
		fix = func(e *cop.Editor) error {
			out, err := s.rt.eval(ctx.Context(), s.correction, s.path, s.globals(n))
			if err != nil {
				return err
			}
			text, ok := out.(*object.String)
			if !ok {
				return fmt.Errorf("runtime: cop %s: correction must return a string, got %s", s.Name(), out.Type())
			}
			e.Replace(n.Range(), text.Value())
			return nil
		}
	}
	ctx.AddOffense(n.Range(), msg, fix)
	return nil
}

func verdict(res object.Object, fallback string) (string, bool) {
	switch v := res.(type) {
	case nil, *object.NilType:
		return "", false
	case *object.String:
		return v.Value(), v.Value() != ""
	default:
		if v.IsTruthy() {
			return fallback, true
		}
		return "", false
	}
}

// LoadManifest reads a YAML list of script cops from fsys.
func LoadManifest(fsys fs.FS, path string) ([]config.ScriptCop, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("runtime: manifest: %w", err)
	}
	var specs []config.ScriptCop
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("runtime: manifest %s: %w", path, err)
	}
	return specs, nil
}

// Load builds every cop in specs. A cop that fails to load is skipped and
// its error returned alongside the cops that loaded.
func (r *Runtime) Load(specs []config.ScriptCop) ([]*ScriptCop, []error) {
	var cops []*ScriptCop
	var errs []error
	for _, spec := range specs {
		c, err := r.NewScriptCop(spec)
		if err != nil {
			r.log.WithError(err).WithField("cop", spec.Name).Debug("runtime: script cop not loaded")
			errs = append(errs, err)
			continue
		}
		cops = append(cops, c)
	}
	return cops, errs
}
