package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flatmap/pkg/cache"
	"github.com/matzehuels/flatmap/pkg/config"
	"github.com/matzehuels/flatmap/pkg/errors"
)

// Inputs holds the raw contents of every file a manifest names, in manifest
// order.
type Inputs struct {
	Manifest     []byte
	Sources      [][]byte
	Connectivity [][]byte
	Knowledge    []byte
}

// LoadInputs reads the files named by m.
func LoadInputs(ctx context.Context, m *config.Manifest) (*Inputs, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	in := &Inputs{Manifest: buf.Bytes()}

	for _, s := range m.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := readInput(m.Resolve(s.Href))
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", s.ID, err)
		}
		in.Sources = append(in.Sources, data)
	}
	for _, c := range m.Connectivity {
		data, err := readInput(m.Resolve(c.Href))
		if err != nil {
			return nil, fmt.Errorf("connectivity: %w", err)
		}
		in.Connectivity = append(in.Connectivity, data)
	}
	if m.Knowledge != "" {
		data, err := readInput(m.Resolve(m.Knowledge))
		if err != nil {
			return nil, fmt.Errorf("knowledge: %w", err)
		}
		in.Knowledge = data
	}
	return in, nil
}

// Hash returns the content hash of all inputs.
func (in *Inputs) Hash() string {
	d := cache.NewDigest().Add("manifest", in.Manifest)
	for _, s := range in.Sources {
		d.Add("source", s)
	}
	for _, c := range in.Connectivity {
		d.Add("connectivity", c)
	}
	return d.Add("knowledge", in.Knowledge).Sum()
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
