// Package io reads shape trees and writes the documents a map build produces.
//
// # Inputs
//
// A shape tree is a JSON document holding the source id and the root node:
//
//	{
//	  "source": "body",
//	  "root": {
//	    "id": "layer-1",
//	    "markup": ".children(organ)",
//	    "children": [
//	      {"id": "s1", "markup": ".boundary", "geometry": {"type": "Polygon", ...}},
//	      {"id": "s2", "markup": ".region id(liver)", "geometry": {"type": "Point", ...}}
//	    ]
//	  }
//	}
//
// Geometries are GeoJSON geometry objects.
//
// # Outputs
//
// A build writes four files:
//
//   - features.geojson: visible features as a FeatureCollection, sorted by id
//   - paths.geojson: routed paths as LineString features, sorted by id
//   - diagnostics.json: an array of {severity, code, message, shape?, path?}
//   - index.json: map id, uuid, build version and summary counts
//
// All writers produce byte-identical output for identical input, so the
// files can be compared or cached by content.
package io
