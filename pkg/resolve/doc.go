// Package resolve turns a Shape Tree into a flat [feature.Collection].
//
// # Traversal
//
// [Resolver.Resolve] walks one tree depth first. Each shape's markup is
// parsed once; a group's own directives derive the [Context] its children
// see:
//
//   - children(C) on the group, or siblings with class(C) on any child, sets
//     the class inherited by children that carry no class of their own
//   - layer(L) sets the inherited layer
//   - invisible hides the whole subtree
//
// # Boundaries
//
// When one child of a group carries boundary, the group is resolved in
// region mode. The other leaf children become divider lines of a
// [subdivide.Input]; children carrying region are not emitted but annotate
// the region that contains their centroid. Nested groups are resolved first,
// so an inner boundary is subdivided before its outline cuts the outer one.
//
// # Diagnostics
//
// Per-shape problems never abort a run. Markup syntax errors, conflicting
// directives, unknown names, bad parameter counts and subdivision warnings
// are collected into a [diag.List]. Only a duplicate feature id is fatal.
package resolve
