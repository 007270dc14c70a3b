// Package description resolves the robot's kinematic and semantic description
// documents from templates. Placeholders use the `${name}` convention and are
// evaluated with the HCL template engine against a flat substitution mapping;
// a placeholder without a substitution is an error, never an empty string.
package description

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/armstack/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"golang.org/x/sync/errgroup"
)

// Kind tags what an artifact describes.
type Kind string

const (
	Kinematic Kind = "kinematic"
	Semantic  Kind = "semantic"
)

// Artifact is an immutable resolved description document.
type Artifact struct {
	kind    Kind
	source  string
	content string
	digest  string
}

func newArtifact(kind Kind, source string, content string) *Artifact {
	sum := sha256.Sum256([]byte(content))
	return &Artifact{kind: kind, source: source, content: content, digest: hex.EncodeToString(sum[:])}
}

// Kind returns the content-kind tag.
func (a *Artifact) Kind() Kind { return a.kind }

// Source is the template path the artifact was resolved from.
func (a *Artifact) Source() string { return a.source }

// String returns the resolved document.
func (a *Artifact) String() string { return a.content }

// Bytes returns a copy of the resolved document.
func (a *Artifact) Bytes() []byte { return []byte(a.content) }

// Digest is the hex SHA-256 of the content.
func (a *Artifact) Digest() string { return a.digest }

// ResolutionError reports a template that could not be resolved.
type ResolutionError struct {
	Template string
	// Missing lists placeholders with no substitution, sorted.
	Missing []string
	Err     error
}

func (e *ResolutionError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("resolve %s: unresolved placeholders: %s", e.Template, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("resolve %s: %v", e.Template, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ErrUnresolved is wrapped by every ResolutionError caused by missing substitutions.
var ErrUnresolved = errors.New("unresolved placeholder")

// Resolve reads the template at templatePath and applies substitutions.
// Identical inputs always yield byte-identical artifacts.
func Resolve(ctx context.Context, kind Kind, templatePath string, substitutions map[string]string) (*Artifact, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving description template.", "kind", kind, "template", templatePath)

	src, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, &ResolutionError{Template: templatePath, Err: err}
	}
	content, err := render(templatePath, src, substitutions)
	if err != nil {
		return nil, err
	}

	a := newArtifact(kind, templatePath, content)
	logger.Debug("Description resolved.", "kind", kind, "bytes", len(content), "digest", a.digest[:12])
	return a, nil
}

// render evaluates src as an HCL template in which only plain variable
// references to substitution keys are allowed.
func render(name string, src []byte, substitutions map[string]string) (string, error) {
	expr, diags := hclsyntax.ParseTemplate(src, name, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return "", &ResolutionError{Template: name, Err: diags}
	}

	if err := placeholdersOnly(name, src, expr); err != nil {
		return "", err
	}

	missing := make(map[string]struct{})
	for _, traversal := range expr.Variables() {
		root := traversal.RootName()
		if _, ok := substitutions[root]; !ok {
			missing[root] = struct{}{}
		}
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for n := range missing {
			names = append(names, n)
		}
		sort.Strings(names)
		return "", &ResolutionError{Template: name, Missing: names, Err: ErrUnresolved}
	}

	vars := make(map[string]cty.Value, len(substitutions))
	for k, v := range substitutions {
		vars[k] = cty.StringVal(v)
	}
	val, diags := expr.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return "", &ResolutionError{Template: name, Err: diags}
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil || val.IsNull() || !val.IsKnown() {
		return "", &ResolutionError{Template: name, Err: fmt.Errorf("template did not produce text: %v", err)}
	}
	return val.AsString(), nil
}

// placeholdersOnly rejects every template construct other than literal text
// and `${name}`: directives, strip markers, and any expression inside an
// interpolation.
func placeholdersOnly(name string, src []byte, expr hclsyntax.Expression) error {
	reject := func(rng hcl.Range, what string) error {
		return &ResolutionError{Template: name, Err: fmt.Errorf("%s: %s are not supported, only ${name} placeholders", rng.String(), what)}
	}

	tokens, _ := hclsyntax.LexTemplate(src, name, hcl.Pos{Line: 1, Column: 1})
	for _, tok := range tokens {
		switch tok.Type {
		case hclsyntax.TokenTemplateControl:
			return reject(tok.Range, "template directives")
		case hclsyntax.TokenTemplateInterp, hclsyntax.TokenTemplateSeqEnd:
			if bytes.ContainsRune(tok.Bytes, '~') {
				return reject(tok.Range, "strip markers")
			}
		}
	}

	var parts []hclsyntax.Expression
	switch e := expr.(type) {
	case *hclsyntax.TemplateWrapExpr:
		parts = []hclsyntax.Expression{e.Wrapped}
	case *hclsyntax.TemplateExpr:
		parts = e.Parts
	default:
		parts = []hclsyntax.Expression{expr}
	}
	for _, part := range parts {
		switch e := part.(type) {
		case *hclsyntax.LiteralValueExpr:
		case *hclsyntax.ScopeTraversalExpr:
			if len(e.Traversal) != 1 {
				return &ResolutionError{
					Template: name,
					Err:      fmt.Errorf("%s: placeholder must be a plain name, got an attribute or index access", e.SrcRange.String()),
				}
			}
		default:
			return reject(part.Range(), "expressions")
		}
	}
	return nil
}

// Sources names the two template documents of a launch.
type Sources struct {
	Kinematic string
	Semantic  string
}

// Set holds the one kinematic and one semantic artifact of a launch.
type Set struct {
	Kinematic *Artifact
	Semantic  *Artifact
}

// ResolveAll resolves both templates concurrently with the same substitutions.
func ResolveAll(ctx context.Context, src Sources, substitutions map[string]string) (*Set, error) {
	set := &Set{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := Resolve(gctx, Kinematic, src.Kinematic, substitutions)
		set.Kinematic = a
		return err
	})
	g.Go(func() error {
		a, err := Resolve(gctx, Semantic, src.Semantic, substitutions)
		set.Semantic = a
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}
