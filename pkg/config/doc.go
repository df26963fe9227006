// Package config reads flatmap manifests.
//
// A manifest is a TOML file naming the shape sources of one map, its
// connectivity documents, and the tuning of each build stage:
//
//	id = "rat"
//	url = "https://example.org/maps/rat"
//	knowledge = "knowledge.json"
//
//	[[sources]]
//	id = "body"
//	href = "body.json"
//
//	[[connectivity]]
//	href = "paths/vagal.json"
//
//	[transform]
//	scale = [1.0, -1.0]
//	offset = [0.0, 1000.0]
//
//	[network]
//	tolerance = 0.5
//
//	[router]
//	reuse-discount = 0.8
//	solve-timeout = "10s"
//
//	[cache]
//	redis = "localhost:6379"
//
//	[neo4j]
//	uri = "neo4j://localhost:7687"
//	user = "neo4j"
//
// Relative hrefs resolve against the directory holding the manifest. Unknown
// keys are rejected so that misspelt settings do not silently fall back to
// defaults.
package config
