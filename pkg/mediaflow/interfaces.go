package mediaflow

import (
	"context"

	"github.com/google/uuid"
)

// BlobSigner issues time-limited, write-only presigned URLs against the
// upload bucket. Clients upload bytes directly to blob storage; the server
// never carries them.
type BlobSigner interface {
	// GetUploadURL returns a presigned PUT URL for the given object key.
	GetUploadURL(ctx context.Context, objectKey, contentType string) (string, error)
}

// Transcoder is the client handle for the external transcoding service.
// Jobs are tracked only by the id the service hands back.
type Transcoder interface {
	// SubmitJob creates a transcoding job and returns its external id.
	SubmitJob(ctx context.Context, spec JobSpec) (string, error)

	// ReadJob returns the current status snapshot for a job.
	ReadJob(ctx context.Context, jobID string) (*JobStatus, error)
}

// JobSpec describes the transcoding job for a single asset: one re-muxed
// video output plus one audio-only extract, input capped at MaxDuration.
type JobSpec struct {
	InputKey         string
	VideoKey         string
	AudioKey         string
	ThumbnailPattern string
	Aspect           Aspect
	MaxDuration      int
}

// JobQueue is a producer-only handle to the background work queue.
type JobQueue interface {
	Enqueue(ctx context.Context, job QueueJob) error
}

// QueueJob is a named work package pushed onto the queue.
type QueueJob struct {
	Name             string
	Payload          map[string]interface{}
	Priority         string
	RemoveOnComplete bool
}

// Repository defines persistence for assets, thumbnails and collection
// attachments. Soft-deleted assets are excluded from all reads.
type Repository interface {
	// Asset operations
	CreateAsset(ctx context.Context, asset *MediaAsset) error
	GetAsset(ctx context.Context, id uuid.UUID) (*MediaAsset, error)
	UpdateAsset(ctx context.Context, asset *MediaAsset) error
	DeleteAsset(ctx context.Context, id uuid.UUID) error

	// MarkAssetEnriched sets the enrichment marker for an asset and reports
	// whether this call set it. Exactly one concurrent caller observes true;
	// the marker is what keeps duplicate completion polls from
	// double-attaching thumbnails.
	MarkAssetEnriched(ctx context.Context, id uuid.UUID) (bool, error)

	// Thumbnail operations
	CreateThumbnail(ctx context.Context, thumb *ThumbnailImage) error
	ListThumbnails(ctx context.Context, assetID uuid.UUID) ([]*ThumbnailImage, error)

	// Collection operations
	FindCollection(ctx context.Context, target CollectionTarget) error
	AttachToCollection(ctx context.Context, target CollectionTarget, assetID uuid.UUID) error
	ListCollectionAssets(ctx context.Context, target CollectionTarget) ([]*MediaAsset, error)
}
