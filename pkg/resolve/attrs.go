package resolve

import (
	"strconv"
	"strings"

	"github.com/matzehuels/flatmap/pkg/diag"
	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/markup"
	"github.com/matzehuels/flatmap/pkg/shape"
)

// attrs is a shape's markup after directive resolution. Later directives
// overwrite earlier ones.
type attrs struct {
	id       string
	class    string
	children string
	layer    string
	label    string
	models   string
	path     string
	details  string
	zoom     int
	capacity int
	style    map[string]string

	siblings   bool
	boundary   bool
	region     bool
	divider    bool
	invisible  bool
	centreline bool
	node       bool
	group      bool
	styling    bool
	closed     bool
	exterior   bool
	interior   bool
	marker     bool
}

// readAttrs parses n's markup. It returns false when the directives conflict
// and the shape's subtree must be skipped. A syntax error is recorded and
// the shape keeps default attributes.
func readAttrs(n *shape.Node, diags *diag.List) (attrs, bool) {
	var a attrs
	ds, err := markup.Parse(n.Markup)
	if err != nil {
		diags.Error(err, n.ID)
		return a, true
	}

	var hasID, hasClass bool
	for _, d := range ds {
		if d.Kind == markup.KindUnknown {
			diags.Warn(errors.ErrCodeUnknownDirective, n.ID, "unknown directive %q", d.Name)
			continue
		}
		if !d.ArityOK() {
			diags.Warn(errors.ErrCodeBadArity, n.ID, "directive %s has %d parameters", d.Name, len(d.Params))
			continue
		}
		switch d.Kind {
		case markup.KindID:
			if err := errors.ValidateFeatureID(d.Param(0)); err != nil {
				diags.Warn(errors.ErrCodeInvalidFeatureID, n.ID, "%s", errors.UserMessage(err))
				continue
			}
			a.id, hasID = d.Param(0), true
		case markup.KindClass:
			a.class, hasClass = d.Param(0), true
		case markup.KindChildren:
			a.children = d.Param(0)
		case markup.KindLayer:
			a.layer = d.Param(0)
		case markup.KindLabel:
			a.label = d.Param(0)
		case markup.KindModels:
			a.models = d.Param(0)
		case markup.KindPath:
			a.path = d.Param(0)
		case markup.KindDetails:
			a.details = d.Param(0)
			if d.Param(1) != "" {
				z, err := strconv.Atoi(d.Param(1))
				if err != nil {
					diags.Warn(errors.ErrCodeInvalidInput, n.ID, "details zoom %q is not an integer", d.Param(1))
					continue
				}
				a.zoom = z
			}
		case markup.KindCapacity:
			c, err := strconv.Atoi(d.Param(0))
			if err != nil || c < 0 {
				diags.Warn(errors.ErrCodeInvalidInput, n.ID, "capacity %q is not a non-negative integer", d.Param(0))
				continue
			}
			a.capacity = c
		case markup.KindStyle:
			for _, p := range d.Params {
				k, v, ok := strings.Cut(p, "=")
				if !ok {
					diags.Warn(errors.ErrCodeInvalidInput, n.ID, "style entry %q is not key=value", p)
					continue
				}
				if a.style == nil {
					a.style = make(map[string]string)
				}
				a.style[strings.TrimSpace(k)] = strings.TrimSpace(v)
			}
		case markup.KindSiblings:
			a.siblings = true
		case markup.KindBoundary:
			a.boundary = true
		case markup.KindRegion:
			a.region = true
		case markup.KindDivider:
			a.divider = true
		case markup.KindInvisible:
			a.invisible = true
		case markup.KindCentreline:
			a.centreline = true
		case markup.KindNode:
			a.node = true
		case markup.KindGroup:
			a.group = true
		case markup.KindStyling:
			a.styling = true
		case markup.KindClosed:
			a.closed = true
		case markup.KindExterior:
			a.exterior = true
		case markup.KindInterior:
			a.interior = true
		case markup.KindMarker:
			a.marker = true
		}
	}

	if a.region && a.boundary {
		diags.Error(errors.New(errors.ErrCodeMarkupConflict, "shape cannot be both region and boundary"), n.ID)
		return a, false
	}
	if a.styling && (hasID || hasClass) {
		diags.Error(errors.New(errors.ErrCodeMarkupConflict, "styling shape cannot carry id or class"), n.ID)
		return a, false
	}
	return a, true
}
