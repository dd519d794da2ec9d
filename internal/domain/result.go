package domain

import (
	"image"
	"time"
)

// OriginalInfo describes the unmodified source image.
type OriginalInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	ByteSize int64  `json:"byteSize"`
}

// SourceImage is the per-call view of an uploaded file.
type SourceImage struct {
	Path        string
	Data        []byte
	ContentHash string
	Original    OriginalInfo
	Image       image.Image
}

// Variant is one resized, re-encoded derivative of a source image.
type Variant struct {
	URL      string `json:"url"`
	Format   Format `json:"format"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	ByteSize int64  `json:"byteSize"`
	Suffix   string `json:"suffix"`
}

// ProcessingResult is the manifest returned to callers and persisted to the
// manifest cache.
type ProcessingResult struct {
	Original         OriginalInfo      `json:"original"`
	BlurPlaceholder  *string           `json:"blurPlaceholder"`
	Variants         []Variant         `json:"variants"`
	Srcset           map[Format]string `json:"srcset"`
	ProcessingTimeMs int64             `json:"processingTimeMs"`
	ContentHash      string            `json:"contentHash"`
	CacheKey         string            `json:"cacheKey"`
	Cached           bool              `json:"cached"`
}

// Clone returns a deep copy of r.
func (r *ProcessingResult) Clone() *ProcessingResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.BlurPlaceholder != nil {
		s := *r.BlurPlaceholder
		out.BlurPlaceholder = &s
	}
	out.Variants = append([]Variant(nil), r.Variants...)
	if r.Srcset != nil {
		out.Srcset = make(map[Format]string, len(r.Srcset))
		for k, v := range r.Srcset {
			out.Srcset[k] = v
		}
	}
	return &out
}

// OutcomeKind tags the result of a single (size, format) cell.
type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota
	OutcomeReused
	OutcomeSkipped
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeReused:
		return "reused"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// VariantOutcome is the tagged result of creating one variant.
type VariantOutcome struct {
	Kind    OutcomeKind
	Format  Format
	Size    SizeSpec
	Variant *Variant
	Err     error
}

func Created(size SizeSpec, v Variant) VariantOutcome {
	return VariantOutcome{Kind: OutcomeCreated, Format: v.Format, Size: size, Variant: &v}
}

func Reused(size SizeSpec, v Variant) VariantOutcome {
	return VariantOutcome{Kind: OutcomeReused, Format: v.Format, Size: size, Variant: &v}
}

func Skipped(format Format, size SizeSpec, reason error) VariantOutcome {
	return VariantOutcome{Kind: OutcomeSkipped, Format: format, Size: size, Err: reason}
}

func Failed(format Format, size SizeSpec, err error) VariantOutcome {
	return VariantOutcome{Kind: OutcomeFailed, Format: format, Size: size, Err: err}
}

// OK reports whether the outcome carries a usable variant.
func (o VariantOutcome) OK() bool {
	return (o.Kind == OutcomeCreated || o.Kind == OutcomeReused) && o.Variant != nil
}

// Metadata is what a header-only decode reveals about an image.
type Metadata struct {
	Width  int
	Height int
	Format string
}

// SweepReport summarizes a cache cleanup pass.
type SweepReport struct {
	Scanned int           `json:"scanned"`
	Deleted int           `json:"deleted"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"elapsed"`
}
