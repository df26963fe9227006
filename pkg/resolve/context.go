package resolve

// Context is the state inherited from enclosing groups. It is passed by
// value; a child never sees changes made by a sibling.
type Context struct {
	Class      string
	Layer      string
	Hidden     bool
	RegionMode bool
}

// derive returns the context a group's children inherit.
func (c Context) derive(a attrs) Context {
	if a.children != "" {
		c.Class = a.children
	}
	if a.layer != "" {
		c.Layer = a.layer
	}
	if a.invisible {
		c.Hidden = true
	}
	c.RegionMode = false
	return c
}
