package store

import (
	"context"

	"tripkit/pkg/model"
)

// CheckpointStore handles durable pipeline session snapshots.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error
	GetLatestCheckpoint(ctx context.Context, sessionID string) (*model.Checkpoint, error)
	ListSessionIDs(ctx context.Context) ([]string, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// CatalogStore handles the destination and hidden spot reference data.
type CatalogStore interface {
	GetDestination(ctx context.Context, id string) (*model.Destination, error)
	SaveDestination(ctx context.Context, d *model.Destination) error
	ListDestinations(ctx context.Context, limit int) ([]*model.Destination, error)
	CountDestinations(ctx context.Context) (int, error)
	GetSpots(ctx context.Context, destinationID string) ([]*model.HiddenSpot, error)
	SaveSpot(ctx context.Context, spot *model.HiddenSpot) error
}

// ImageStore handles generated image records.
type ImageStore interface {
	SaveImage(ctx context.Context, img *model.GeneratedImage) error
	GetImage(ctx context.Context, id string) (*model.GeneratedImage, error)
	GetSessionImages(ctx context.Context, sessionID string) ([]*model.GeneratedImage, error)
}

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
}
