// Package questionnaire answers batches of questions read from YAML files.
package questionnaire

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

// DecodeOption adjusts how a questionnaire is decoded.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	charLimit  int
	maxRetries int
}

// WithDefaults sets the limits applied when the file leaves them unset.
// Non-positive values keep the package defaults.
func WithDefaults(charLimit, maxRetries int) DecodeOption {
	return func(o *decodeOptions) {
		if charLimit > 0 {
			o.charLimit = charLimit
		}
		if maxRetries > 0 {
			o.maxRetries = maxRetries
		}
	}
}

// Decode parses, validates and normalizes a questionnaire.
func Decode(r io.Reader, opts ...DecodeOption) (*domain.Questionnaire, error) {
	o := decodeOptions{charLimit: domain.DefaultCharLimit, maxRetries: domain.DefaultMaxRetries}
	for _, opt := range opts {
		opt(&o)
	}

	var q domain.Questionnaire
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidQuestionnaire, err)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.NormalizeWith(o.charLimit, o.maxRetries)
	return &q, nil
}

// Load reads a questionnaire file.
func Load(path string, opts ...DecodeOption) (*domain.Questionnaire, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, opts...)
}

// Encode writes report as YAML.
func Encode(w io.Writer, report *domain.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes report to path, replacing any existing file.
func Save(path string, report *domain.Report) error {
	var buf bytes.Buffer
	if err := Encode(&buf, report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
