package types

// Synth is the contract every supported hardware synth model satisfies
// (spec.md §6, "Synth contract (consumed)"). The catalog core never
// parses sysex itself; it calls back into whichever Synth produced (or
// claims to own) a patch's bytes.
type Synth interface {
	Name() string
	Deserialize(data []byte, programNumber int) (*Patch, error)
	ComputeContentHash(data []byte) string
}

// DefaultNameChecker is an optional capability a Synth may additionally
// implement: a predicate recognizing its model-specific placeholder
// names ("INIT", "Basic", ...) so merge can suppress overwriting a
// hand-edited display name with one (spec.md §4.6 "Default-name
// suppression").
type DefaultNameChecker interface {
	IsDefaultName(name string) bool
}

// SynthRegistry resolves a synth_name to its Synth handle. The patch
// store borrows synths through this rather than owning them.
type SynthRegistry interface {
	Synth(synthName string) (Synth, bool)
}

// SourceDescriptor is the opaque origin metadata recorded on import
// (spec.md §6, "Source descriptor contract (consumed)"): a file path, a
// bank number, an edit-buffer capture, or whatever a given importer
// considers its provenance.
type SourceDescriptor interface {
	IsEditBuffer() bool
	DisplayString(synthName string, withCounts bool) string
	Digest(synthName string) string
	Serialize() string
}

// SourceDescriptorDecoder parses a SourceDescriptor back out of the
// string Serialize() produced. Supplied by whichever importer produced
// the original descriptor; the catalog core never constructs one
// itself, only round-trips it.
type SourceDescriptorDecoder func(serialized string) (SourceDescriptor, error)

// CategoryRule is one entry of the external automatic-rule set (spec.md
// §6, "Automatic categorizer contract (consumed)"): a category name, its
// display color, and the name substrings/patterns that make the
// automatic categorizer assign it.
type CategoryRule struct {
	CategoryName string   `yaml:"category"`
	Color        string   `yaml:"color"`
	NameMatchers []string `yaml:"matchers"`
}

// AutomaticCategorizer supplies the external rule set the category
// registry reconciles against on demand (spec.md §4.2
// reconcile_with_rules).
type AutomaticCategorizer interface {
	Rules() []CategoryRule
}

// ProgressReporter is the cancellation/progress contract long-running
// bulk operations poll (spec.md §6, §5 "Cancellation").
type ProgressReporter interface {
	SetProgress(fraction float64)
	ShouldAbort() bool
}

// NopReporter is a ProgressReporter that never aborts and discards
// progress updates. Callers that don't care about cancellation or
// progress pass this instead of nil, so merge/reindex never need a
// nil check on the hot path.
type NopReporter struct{}

func (NopReporter) SetProgress(float64) {}
func (NopReporter) ShouldAbort() bool   { return false }
