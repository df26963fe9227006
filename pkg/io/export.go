package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/flatmap/pkg/diag"
	"github.com/matzehuels/flatmap/pkg/feature"
	"github.com/matzehuels/flatmap/pkg/route"
)

// Output file names.
const (
	FileFeatures    = "features.geojson"
	FilePaths       = "paths.geojson"
	FileDiagnostics = "diagnostics.json"
	FileIndex       = "index.json"
)

// Index summarises a build.
type Index struct {
	ID       string `json:"id"`
	UUID     string `json:"uuid"`
	Version  string `json:"version"`
	Features int    `json:"features"`
	Paths    int    `json:"paths"`
	Warnings int    `json:"warnings"`
	Errors   int    `json:"errors"`
}

// WriteFeatures writes the visible features of fc as GeoJSON.
func WriteFeatures(fc *feature.Collection, w io.Writer) error {
	return encode(w, fc.ToGeoJSON(false))
}

// PathsToGeoJSON converts routed paths into line features sorted by id.
func PathsToGeoJSON(paths []route.RoutedPath) *geojson.FeatureCollection {
	sorted := make([]route.RoutedPath, len(paths))
	copy(sorted, paths)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := geojson.NewFeatureCollection()
	for _, p := range sorted {
		f := geojson.NewFeature(p.Geometry)
		f.ID = p.ID
		f.Properties["path-id"] = p.ID
		f.Properties["edges"] = p.Edges
		f.Properties["nodes"] = p.Nodes
		f.Properties["length"] = p.Length
		if p.Type != "" {
			f.Properties["type"] = p.Type
		}
		if p.Label != "" {
			f.Properties["label"] = p.Label
		}
		if p.Models != "" {
			f.Properties["models"] = p.Models
		}
		if p.Trace != nil {
			f.Properties["trace"] = p.Trace
		}
		out.Append(f)
	}
	return out
}

// WritePaths writes routed paths as GeoJSON.
func WritePaths(paths []route.RoutedPath, w io.Writer) error {
	return encode(w, PathsToGeoJSON(paths))
}

// WriteDiagnostics writes diagnostics as a JSON array in emission order.
// A nil list is written as an empty array.
func WriteDiagnostics(diags *diag.List, w io.Writer) error {
	items := []diag.Diagnostic{}
	if diags != nil && diags.Len() > 0 {
		items = diags.Items()
	}
	return encode(w, items)
}

// WriteIndex writes the build index.
func WriteIndex(idx Index, w io.Writer) error {
	return encode(w, idx)
}

// ExportDir writes named documents into dir, creating it if needed.
// Files are written in name order.
func ExportDir(dir string, docs map[string][]byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, docs[name], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
