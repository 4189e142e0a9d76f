package assets

import "errors"

// Sentinel errors for asset lookups.
var (
	ErrStyleNotFound         = errors.New("style not found")
	ErrTemplateNotFound      = errors.New("template not found")
	ErrIncompleteTemplateSet = errors.New("template set missing required template")

	// ErrInvalidAssetName rejects names with separators or dots.
	ErrInvalidAssetName = errors.New("invalid asset name")

	ErrInvalidBasePath = errors.New("invalid base path")
	ErrAssetRead       = errors.New("failed to read asset")
)
