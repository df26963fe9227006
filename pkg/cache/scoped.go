package cache

// ScopedKeyer prefixes every key of an inner Keyer, so that several maps
// can share one Redis database without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "map:whole-body:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer means the default layout.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// BuildKey returns the prefixed build key.
func (k *ScopedKeyer) BuildKey(inputHash string, opts BuildKeyOpts) string {
	return k.prefix + k.inner.BuildKey(inputHash, opts)
}

// KnowledgeKey returns the prefixed knowledge key.
func (k *ScopedKeyer) KnowledgeKey(entity string) string {
	return k.prefix + k.inner.KnowledgeKey(entity)
}

// RenderKey returns the prefixed render key.
func (k *ScopedKeyer) RenderKey(buildHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(buildHash, opts)
}
