package domain

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Format is an output encoding produced by the pipeline.
type Format string

const (
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// ParseFormat parses a format name. "jpg" is accepted as an alias of jpeg.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "webp":
		return FormatWebP, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) String() string {
	return string(f)
}

// SizeSpec is a target width paired with the filename suffix of its variants.
// A zero Width keeps the source resolution.
type SizeSpec struct {
	Width  int    `json:"width,omitempty"`
	Suffix string `json:"suffix"`
}

// IsOriginal reports whether the size keeps the source resolution.
func (s SizeSpec) IsOriginal() bool {
	return s.Width == 0
}

// ParseSizeSpec parses "320:sm", "0:original", ":original" or a bare suffix
// such as "original".
func ParseSizeSpec(s string) (SizeSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SizeSpec{}, fmt.Errorf("%w: empty size", ErrInvalidConfig)
	}

	widthPart, suffix, found := strings.Cut(s, ":")
	if !found {
		return SizeSpec{Suffix: s}, nil
	}

	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return SizeSpec{}, fmt.Errorf("%w: size %q has no suffix", ErrInvalidConfig, s)
	}

	widthPart = strings.TrimSpace(widthPart)
	if widthPart == "" {
		return SizeSpec{Suffix: suffix}, nil
	}

	width, err := strconv.Atoi(widthPart)
	if err != nil || width < 0 {
		return SizeSpec{}, fmt.Errorf("%w: size %q has invalid width", ErrInvalidConfig, s)
	}
	return SizeSpec{Width: width, Suffix: suffix}, nil
}

// Quality holds per-format encoding quality in the range 1-100.
type Quality struct {
	WebP int `json:"webp"`
	JPEG int `json:"jpeg"`
	PNG  int `json:"png"`
}

// For returns the quality configured for format.
func (q Quality) For(format Format) int {
	switch format {
	case FormatWebP:
		return q.WebP
	case FormatJPEG:
		return q.JPEG
	case FormatPNG:
		return q.PNG
	default:
		return 0
	}
}

const (
	DefaultUploadDir    = "uploads/original"
	DefaultProcessedDir = "uploads/processed"
	DefaultCacheDir     = "uploads/cache"
	DefaultURLPrefix    = "/images"
)

// ProcessingConfig is the immutable configuration of an ImageProcessor.
type ProcessingConfig struct {
	Formats            []Format
	Sizes              []SizeSpec
	Quality            Quality
	UploadDir          string
	ProcessedDir       string
	CacheDir           string
	URLPrefix          string
	DeleteOriginal     bool
	VariantConcurrency int
}

// DefaultProcessingConfig returns the documented defaults.
func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		Formats: []Format{FormatWebP, FormatJPEG},
		Sizes: []SizeSpec{
			{Width: 320, Suffix: "sm"},
			{Width: 768, Suffix: "md"},
			{Width: 1024, Suffix: "lg"},
			{Width: 1920, Suffix: "xl"},
			{Suffix: "original"},
		},
		Quality:            Quality{WebP: 85, JPEG: 80, PNG: 90},
		UploadDir:          DefaultUploadDir,
		ProcessedDir:       DefaultProcessedDir,
		CacheDir:           DefaultCacheDir,
		URLPrefix:          DefaultURLPrefix,
		VariantConcurrency: runtime.NumCPU(),
	}
}

// WithDefaults returns c with every zero field replaced by its default.
func (c ProcessingConfig) WithDefaults() ProcessingConfig {
	d := DefaultProcessingConfig()

	if len(c.Formats) == 0 {
		c.Formats = d.Formats
	} else {
		c.Formats = append([]Format(nil), c.Formats...)
	}
	if len(c.Sizes) == 0 {
		c.Sizes = d.Sizes
	} else {
		c.Sizes = append([]SizeSpec(nil), c.Sizes...)
	}
	if c.Quality.WebP == 0 {
		c.Quality.WebP = d.Quality.WebP
	}
	if c.Quality.JPEG == 0 {
		c.Quality.JPEG = d.Quality.JPEG
	}
	if c.Quality.PNG == 0 {
		c.Quality.PNG = d.Quality.PNG
	}
	if c.UploadDir == "" {
		c.UploadDir = d.UploadDir
	}
	if c.ProcessedDir == "" {
		c.ProcessedDir = d.ProcessedDir
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	if c.URLPrefix == "" {
		c.URLPrefix = d.URLPrefix
	}
	if c.VariantConcurrency <= 0 {
		c.VariantConcurrency = d.VariantConcurrency
	}
	return c
}

// Validate checks the configuration invariants.
func (c ProcessingConfig) Validate() error {
	if len(c.Formats) == 0 {
		return fmt.Errorf("%w: no output formats", ErrInvalidConfig)
	}
	seenFormats := make(map[Format]struct{}, len(c.Formats))
	for _, f := range c.Formats {
		if _, err := ParseFormat(string(f)); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if _, dup := seenFormats[f]; dup {
			return fmt.Errorf("%w: duplicate format %q", ErrInvalidConfig, f)
		}
		seenFormats[f] = struct{}{}

		if q := c.Quality.For(f); q < 1 || q > 100 {
			return fmt.Errorf("%w: %s quality %d out of range 1-100", ErrInvalidConfig, f, q)
		}
	}

	if len(c.Sizes) == 0 {
		return fmt.Errorf("%w: no sizes", ErrInvalidConfig)
	}
	seenSuffixes := make(map[string]struct{}, len(c.Sizes))
	for _, s := range c.Sizes {
		if s.Suffix == "" {
			return fmt.Errorf("%w: size with empty suffix", ErrInvalidConfig)
		}
		if strings.ContainsAny(s.Suffix, `/\.`) {
			return fmt.Errorf("%w: suffix %q contains a path character", ErrInvalidConfig, s.Suffix)
		}
		if s.Width < 0 {
			return fmt.Errorf("%w: size %q has negative width", ErrInvalidConfig, s.Suffix)
		}
		if _, dup := seenSuffixes[s.Suffix]; dup {
			return fmt.Errorf("%w: duplicate suffix %q", ErrInvalidConfig, s.Suffix)
		}
		seenSuffixes[s.Suffix] = struct{}{}
	}

	if c.UploadDir == "" || c.ProcessedDir == "" || c.CacheDir == "" {
		return fmt.Errorf("%w: upload, processed and cache directories are required", ErrInvalidConfig)
	}
	return nil
}

// Directories lists every directory the pipeline writes to.
func (c ProcessingConfig) Directories() []string {
	dirs := []string{c.UploadDir, c.ProcessedDir, c.CacheDir}
	for _, f := range c.Formats {
		dirs = append(dirs, filepath.Join(c.ProcessedDir, string(f)))
	}
	return dirs
}

// VariantName is the content-addressed file name of a variant.
func VariantName(format Format, contentHash, suffix string) string {
	return contentHash + "_" + suffix + "." + string(format)
}

// VariantPath is where the variant for (format, hash, suffix) lives on disk.
func (c ProcessingConfig) VariantPath(format Format, contentHash, suffix string) string {
	return filepath.Join(c.ProcessedDir, string(format), VariantName(format, contentHash, suffix))
}

// VariantURL mirrors VariantPath below URLPrefix.
func (c ProcessingConfig) VariantURL(format Format, contentHash, suffix string) string {
	return strings.TrimRight(c.URLPrefix, "/") + "/" + string(format) + "/" + VariantName(format, contentHash, suffix)
}
