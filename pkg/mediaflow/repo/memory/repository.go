package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/startup-factory/unitalk/pkg/mediaflow"
)

type targetKey struct {
	kind mediaflow.CollectionKind
	id   uuid.UUID
}

// Repository implements mediaflow.Repository using in-memory storage.
// Collection targets must be registered before anything can attach to them;
// the dev server and tests seed them with RegisterCollection.
type Repository struct {
	mu          sync.RWMutex
	assets      map[uuid.UUID]*mediaflow.MediaAsset
	thumbnails  map[uuid.UUID][]*mediaflow.ThumbnailImage
	collections map[targetKey]bool
	attachments map[targetKey][]uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		assets:      make(map[uuid.UUID]*mediaflow.MediaAsset),
		thumbnails:  make(map[uuid.UUID][]*mediaflow.ThumbnailImage),
		collections: make(map[targetKey]bool),
		attachments: make(map[targetKey][]uuid.UUID),
	}
}

// RegisterCollection makes a collection target known to the repository.
func (r *Repository) RegisterCollection(target mediaflow.CollectionTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[targetKey{kind: target.Kind, id: target.ID}] = true
}

// Asset operations

func (r *Repository) CreateAsset(ctx context.Context, asset *mediaflow.MediaAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	assetCopy := *asset
	r.assets[asset.ID] = &assetCopy

	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*mediaflow.MediaAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists || asset.DeletedAt != nil {
		return nil, mediaflow.ErrAssetNotFound
	}

	assetCopy := *asset
	return &assetCopy, nil
}

func (r *Repository) UpdateAsset(ctx context.Context, asset *mediaflow.MediaAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.assets[asset.ID]
	if !exists || stored.DeletedAt != nil {
		return mediaflow.ErrAssetNotFound
	}

	assetCopy := *asset
	// The enrichment marker is owned by MarkAssetEnriched; a stale copy in
	// the caller's hands must not clear it.
	assetCopy.Enriched = assetCopy.Enriched || stored.Enriched
	r.assets[asset.ID] = &assetCopy

	return nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.assets[id]
	if !exists || asset.DeletedAt != nil {
		return mediaflow.ErrAssetNotFound
	}

	now := time.Now().UTC()
	asset.DeletedAt = &now
	asset.UpdatedAt = now
	return nil
}

func (r *Repository) MarkAssetEnriched(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.assets[id]
	if !exists || asset.DeletedAt != nil {
		return false, mediaflow.ErrAssetNotFound
	}

	if asset.Enriched {
		return false, nil
	}
	asset.Enriched = true
	asset.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Thumbnail operations

func (r *Repository) CreateThumbnail(ctx context.Context, thumb *mediaflow.ThumbnailImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[thumb.AssetID]; !exists {
		return mediaflow.ErrAssetNotFound
	}

	thumbCopy := *thumb
	r.thumbnails[thumb.AssetID] = append(r.thumbnails[thumb.AssetID], &thumbCopy)

	return nil
}

func (r *Repository) ListThumbnails(ctx context.Context, assetID uuid.UUID) ([]*mediaflow.ThumbnailImage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Creation order is attachment order; no re-sorting.
	stored := r.thumbnails[assetID]
	result := make([]*mediaflow.ThumbnailImage, 0, len(stored))
	for _, thumb := range stored {
		thumbCopy := *thumb
		result = append(result, &thumbCopy)
	}

	return result, nil
}

// Collection operations

func (r *Repository) FindCollection(ctx context.Context, target mediaflow.CollectionTarget) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.collections[targetKey{kind: target.Kind, id: target.ID}] {
		return mediaflow.ErrTargetNotFound
	}
	return nil
}

func (r *Repository) AttachToCollection(ctx context.Context, target mediaflow.CollectionTarget, assetID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := targetKey{kind: target.Kind, id: target.ID}
	if !r.collections[key] {
		return mediaflow.ErrTargetNotFound
	}
	if _, exists := r.assets[assetID]; !exists {
		return mediaflow.ErrAssetNotFound
	}

	r.attachments[key] = append(r.attachments[key], assetID)
	return nil
}

func (r *Repository) ListCollectionAssets(ctx context.Context, target mediaflow.CollectionTarget) ([]*mediaflow.MediaAsset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := targetKey{kind: target.Kind, id: target.ID}
	if !r.collections[key] {
		return nil, mediaflow.ErrTargetNotFound
	}

	var result []*mediaflow.MediaAsset
	for _, assetID := range r.attachments[key] {
		asset, exists := r.assets[assetID]
		if !exists || asset.DeletedAt != nil || asset.Status != mediaflow.AssetStatusViewable {
			continue
		}
		assetCopy := *asset
		result = append(result, &assetCopy)
	}

	return result, nil
}

var _ mediaflow.Repository = (*Repository)(nil)
