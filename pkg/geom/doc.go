// Package geom holds the planar geometry kernel used by flatmap.
//
// Geometries are [github.com/paulmach/orb] values throughout. This package
// adds the pieces orb does not ship:
//
//   - [Transform]: the caller-supplied source to projected coordinate mapping
//     and its application to whole geometries
//   - [Snapper]: tolerance-based point deduplication backed by an R-tree
//     (github.com/dhconnelly/rtreego)
//   - [Polygonize]: the bounded faces of an arrangement of line strings,
//     with hole assignment for nested components
//   - [ConnectEnds]: connector segments that join almost-touching line ends
//     to the nearest neighbouring line
//   - [InteriorPoint], [SignedArea] and friends
//
// Everything here is deterministic: given the same input order the same
// output order is produced, which the map builder relies on for
// byte-identical rebuilds.
package geom
