package connectivity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/flatmap/pkg/diag"
	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/route"
)

// Document is one connectivity document.
type Document struct {
	ID            string   `json:"id"`
	Source        string   `json:"source,omitempty"`
	Paths         []Path   `json:"paths"`
	TracedPaths   []string `json:"traced-paths,omitempty"`
	ExcludedPaths []string `json:"excluded-paths,omitempty"`
}

// Path is one path entry of a document.
type Path struct {
	ID         string          `json:"id"`
	Route      json.RawMessage `json:"route"`
	Type       string          `json:"type,omitempty"`
	Phenotypes []string        `json:"phenotypes,omitempty"`
	Models     string          `json:"models,omitempty"`
	Label      string          `json:"label,omitempty"`
	Filter     string          `json:"filter,omitempty"`
}

// Read decodes a document.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode connectivity")
	}
	return &doc, nil
}

// Load reads the document at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	doc, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Specs converts the document's paths into routable specs. Paths whose
// route cannot be parsed are reported and skipped. k may be nil.
func (d *Document) Specs(ctx context.Context, k Knowledge) ([]route.PathSpec, *diag.List) {
	diags := &diag.List{}
	traced := set(d.TracedPaths)
	excluded := set(d.ExcludedPaths)

	specs := make([]route.PathSpec, 0, len(d.Paths))
	for _, p := range d.Paths {
		steps, err := ParseRoute(p.Route)
		if err != nil {
			diags.WarnPath(errors.ErrCodeInvalidInput, p.ID, "%s", errors.UserMessage(err))
			continue
		}
		spec := route.PathSpec{
			ID:     p.ID,
			Steps:  steps,
			Type:   p.Type,
			Filter: route.Filter(p.Filter),
			Label:  p.Label,
			Models: p.Models,
		}
		if !spec.Filter.Valid() {
			diags.WarnPath(errors.ErrCodeInvalidInput, p.ID, "unknown filter %q, including path", p.Filter)
			spec.Filter = route.FilterInclude
		}
		phenotypes := p.Phenotypes
		if k != nil && p.Models != "" {
			ent, err := k.Lookup(ctx, p.Models)
			switch {
			case err == nil:
				if spec.Label == "" {
					spec.Label = ent.Label
				}
				if len(phenotypes) == 0 {
					phenotypes = ent.Phenotypes
				}
			case errors.Is(err, errors.ErrCodeNotFound):
			default:
				diags.WarnPath(errors.ErrCodeNetwork, p.ID, "knowledge lookup for %s: %s", p.Models, errors.UserMessage(err))
			}
		}
		if spec.Type == "" && len(phenotypes) > 0 {
			spec.Type = PathType(phenotypes)
			if spec.Type == "" {
				diags.WarnPath(errors.ErrCodeInvalidInput, p.ID, "unknown phenotypes %v, defaulting to cns", phenotypes)
				spec.Type = "cns"
			}
		}
		switch {
		case excluded[p.ID]:
			spec.Filter = route.FilterExclude
		case traced[p.ID]:
			spec.Filter = route.FilterTrace
		case spec.Filter == "":
			spec.Filter = route.FilterInclude
		}
		specs = append(specs, spec)
	}
	return specs, diags
}

func set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// ParseRoute decodes a route given either as a JSON list or as a string.
func ParseRoute(raw json.RawMessage) ([][]string, error) {
	if len(raw) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "path has no route")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseRouteString(s)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "route must be a list or a string")
	}
	steps := make([][]string, 0, len(items))
	for i, it := range items {
		var name string
		if err := json.Unmarshal(it, &name); err == nil {
			steps = append(steps, []string{strings.TrimSpace(name)})
			continue
		}
		var names []string
		if err := json.Unmarshal(it, &names); err != nil || len(names) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "route element %d is neither a name nor a list of names", i+1)
		}
		for j := range names {
			names[j] = strings.TrimSpace(names[j])
		}
		steps = append(steps, names)
	}
	return steps, nil
}

// ParseRouteString parses "a, (b, c), d" into steps.
func ParseRouteString(s string) ([][]string, error) {
	var steps [][]string
	var group []string
	inGroup := false
	var cur strings.Builder

	flush := func() error {
		name := strings.TrimSpace(cur.String())
		cur.Reset()
		if name == "" {
			return errors.New(errors.ErrCodeInvalidInput, "empty step in route %q", s)
		}
		if inGroup {
			group = append(group, name)
		} else {
			steps = append(steps, []string{name})
		}
		return nil
	}

	afterGroup := false
	for _, r := range s {
		switch {
		case r == '(' && !inGroup && strings.TrimSpace(cur.String()) == "":
			inGroup, group = true, nil
			cur.Reset()
		case r == ')' && inGroup:
			if err := flush(); err != nil {
				return nil, err
			}
			steps = append(steps, group)
			inGroup, afterGroup = false, true
		case r == ',':
			if afterGroup {
				afterGroup = false
				continue
			}
			if err := flush(); err != nil {
				return nil, err
			}
		case r == '(' || r == ')':
			return nil, errors.New(errors.ErrCodeInvalidInput, "unbalanced parentheses in route %q", s)
		default:
			if afterGroup && r != ' ' && r != '\t' {
				return nil, errors.New(errors.ErrCodeInvalidInput, "missing comma after group in route %q", s)
			}
			cur.WriteRune(r)
		}
	}
	if inGroup {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unbalanced parentheses in route %q", s)
	}
	if !afterGroup {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return steps, nil
}
