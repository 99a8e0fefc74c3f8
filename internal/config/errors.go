package config

import "errors"

var (
	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrUnknownDatasetType classifies dataset blocks whose type discriminator
	// does not match any registered dataset kind.
	ErrUnknownDatasetType = errors.New("unknown dataset type")

	// ErrMissingField classifies validation failures for required fields.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidValue classifies validation failures for out-of-range values.
	ErrInvalidValue = errors.New("invalid config value")
)
