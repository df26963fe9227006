package cache

// Keyer derives cache keys.
type Keyer interface {
	// BuildKey identifies a pipeline result by the hash of its inputs.
	BuildKey(inputHash string, opts BuildKeyOpts) string

	// KnowledgeKey identifies a knowledge-base entity lookup.
	KnowledgeKey(entity string) string

	// RenderKey identifies a rendered network diagram.
	RenderKey(buildHash string, opts RenderKeyOpts) string
}

// BuildKeyOpts are the pipeline options that change a build's output.
type BuildKeyOpts struct {
	Tolerance     float64 `json:"tolerance"`
	Extend        float64 `json:"extend"`
	ReuseDiscount float64 `json:"reuse_discount"`
	MaxCandidates int     `json:"max_candidates"`
}

// RenderKeyOpts are the options that change a rendered diagram.
type RenderKeyOpts struct {
	Format string `json:"format"`
	Routes bool   `json:"routes"`
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// BuildKey returns build:<hash of input hash and options>.
func (DefaultKeyer) BuildKey(inputHash string, opts BuildKeyOpts) string {
	return optionKey("build", inputHash, opts)
}

// KnowledgeKey returns knowledge:<entity>.
func (DefaultKeyer) KnowledgeKey(entity string) string {
	return "knowledge:" + entity
}

// RenderKey returns render:<hash of build hash and options>.
func (DefaultKeyer) RenderKey(buildHash string, opts RenderKeyOpts) string {
	return optionKey("render", buildHash, opts)
}
