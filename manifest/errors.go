package manifest

import "errors"

var (
	// ErrDuplicateVariant is returned by AddVariant when a variant already
	// exists for the same (name, signature, feature set).
	ErrDuplicateVariant = errors.New("duplicate variant for name, signature, and feature set")

	// ErrFrozenManifest is returned when a builder is mutated after
	// Finalize. This is a programmer error.
	ErrFrozenManifest = errors.New("manifest is finalized and cannot be modified")

	// ErrNoBaseline is returned by Finalize when a variant group lacks a
	// baseline (empty feature set) variant. Every group must carry one so
	// that dispatch always has a fallback.
	ErrNoBaseline = errors.New("variant group has no baseline variant")
)
