package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/flatmap/pkg/errors"
	"github.com/matzehuels/flatmap/pkg/shape"
)

// ReadShapes decodes a shape tree from r and validates it.
func ReadShapes(r io.Reader) (*shape.Tree, error) {
	var t shape.Tree
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode shape tree")
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "shape tree %s", t.Source)
	}
	return &t, nil
}

// ImportShapes reads the shape tree file at path.
func ImportShapes(path string) (*shape.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	t, err := ReadShapes(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
