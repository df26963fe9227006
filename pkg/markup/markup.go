package markup

import (
	"strings"
	"unicode"

	"github.com/matzehuels/flatmap/pkg/errors"
)

// Sentinel is the character that marks a name as markup.
const Sentinel = '.'

// Kind identifies a directive.
type Kind int

const (
	KindUnknown Kind = iota
	KindID
	KindClass
	KindChildren
	KindSiblings
	KindBoundary
	KindRegion
	KindDivider
	KindInvisible
	KindCentreline
	KindNode
	KindGroup
	KindStyle
	KindStyling
	KindLabel
	KindModels
	KindLayer
	KindPath
	KindDetails
	KindCapacity
	KindClosed
	KindExterior
	KindInterior
	KindMarker
)

// unbounded marks a directive accepting any number of parameters.
const unbounded = -1

type spec struct {
	kind     Kind
	min, max int
}

var directives = map[string]spec{
	"id":         {KindID, 1, 1},
	"class":      {KindClass, 1, 1},
	"children":   {KindChildren, 1, 1},
	"siblings":   {KindSiblings, 0, 0},
	"boundary":   {KindBoundary, 0, 0},
	"region":     {KindRegion, 0, 0},
	"divider":    {KindDivider, 0, 0},
	"invisible":  {KindInvisible, 0, 0},
	"centreline": {KindCentreline, 0, 0},
	"centerline": {KindCentreline, 0, 0},
	"node":       {KindNode, 0, 0},
	"group":      {KindGroup, 0, 0},
	"style":      {KindStyle, 1, unbounded},
	"styling":    {KindStyling, 0, 0},
	"label":      {KindLabel, 1, 1},
	"name":       {KindLabel, 1, 1},
	"models":     {KindModels, 1, 1},
	"layer":      {KindLayer, 1, 1},
	"path":       {KindPath, 1, 1},
	"details":    {KindDetails, 1, 2},
	"capacity":   {KindCapacity, 1, 1},
	"closed":     {KindClosed, 0, 0},
	"exterior":   {KindExterior, 0, 0},
	"interior":   {KindInterior, 0, 0},
	"marker":     {KindMarker, 0, 0},
}

// Directive is one parsed name(params) token.
type Directive struct {
	Kind   Kind
	Name   string
	Params []string
}

// Param returns parameter i, or "" when absent.
func (d Directive) Param(i int) string {
	if i < len(d.Params) {
		return d.Params[i]
	}
	return ""
}

// ArityOK reports whether the parameter count is one the directive accepts.
// Unknown directives accept anything.
func (d Directive) ArityOK() bool {
	s, ok := directives[strings.ToLower(d.Name)]
	if !ok {
		return true
	}
	n := len(d.Params)
	return n >= s.min && (s.max == unbounded || n <= s.max)
}

// String formats d back into markup.
func (d Directive) String() string {
	if len(d.Params) == 0 {
		return d.Name
	}
	return d.Name + "(" + strings.Join(d.Params, ", ") + ")"
}

// IsMarkup reports whether s starts with the markup sentinel.
func IsMarkup(s string) bool {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	return len(s) > 0 && s[0] == Sentinel
}

// Lookup returns the kind for a directive name.
func Lookup(name string) Kind {
	if s, ok := directives[strings.ToLower(name)]; ok {
		return s.kind
	}
	return KindUnknown
}

// Parse splits a markup string into directives. Names that are not markup
// yield nil.
func Parse(s string) ([]Directive, error) {
	if !IsMarkup(s) {
		return nil, nil
	}
	src := strings.TrimLeftFunc(s, unicode.IsSpace)[1:]

	var out []Directive
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case isSpace(c) || c == Sentinel:
			i++
			continue
		case !isNameStart(c):
			return nil, errors.New(errors.ErrCodeMarkupSyntax, "unexpected %q at offset %d in %q", c, i+1, s)
		}

		start := i
		for i < len(src) && isNameChar(src[i]) {
			i++
		}
		name := src[start:i]

		j := i
		for j < len(src) && isSpace(src[j]) {
			j++
		}
		var params []string
		if j < len(src) && src[j] == '(' {
			end, err := closing(src, j)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMarkupSyntax, err, "directive %q in %q", name, s)
			}
			params = splitParams(src[j+1 : end])
			i = end + 1
		}
		if i < len(src) && !isSpace(src[i]) && src[i] != Sentinel {
			if src[i] == ')' {
				return nil, errors.New(errors.ErrCodeMarkupSyntax, "unbalanced ')' after %q in %q", name, s)
			}
			return nil, errors.New(errors.ErrCodeMarkupSyntax, "unexpected %q after %q in %q", src[i], name, s)
		}
		out = append(out, Directive{Kind: Lookup(name), Name: name, Params: params})
	}
	return out, nil
}

// closing returns the index of the parenthesis matching the one at open.
func closing(s string, open int) (int, error) {
	depth := 0
	for k := open; k < len(s); k++ {
		switch s[k] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return k, nil
			}
		}
	}
	return 0, errUnbalanced
}

var errUnbalanced = errors.New(errors.ErrCodeMarkupSyntax, "unbalanced parentheses")

func splitParams(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var params []string
	depth, start := 0, 0
	for k := 0; k < len(s); k++ {
		switch s[k] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				params = append(params, strings.TrimSpace(s[start:k]))
				start = k + 1
			}
		}
	}
	return append(params, strings.TrimSpace(s[start:]))
}

func isSpace(c byte) bool     { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isNameStart(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// =============================================================================
// Directive lists
// =============================================================================

// List is a parsed directive sequence with lookup helpers.
type List []Directive

// Has reports whether any directive has kind k.
func (l List) Has(k Kind) bool {
	for _, d := range l {
		if d.Kind == k {
			return true
		}
	}
	return false
}

// Last returns the last directive of kind k, which overrides earlier ones.
func (l List) Last(k Kind) (Directive, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Kind == k {
			return l[i], true
		}
	}
	return Directive{}, false
}

// All returns every directive of kind k in order.
func (l List) All(k Kind) []Directive {
	var out []Directive
	for _, d := range l {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}
