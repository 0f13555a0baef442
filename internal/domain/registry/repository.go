package registry

import "context"

type Repository interface {
	IsSupported(ctx context.Context, asset string) (bool, error)
	AddAsset(ctx context.Context, asset string) error
	RemoveAsset(ctx context.Context, asset string) error
	ListAssets(ctx context.Context) ([]SupportedAsset, error)
	// DefaultThreshold returns fallback when the settings row is missing.
	DefaultThreshold(ctx context.Context, fallback uint32) (uint32, error)
	SetDefaultThreshold(ctx context.Context, pct uint32) error
}
