package mediaflow

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the media upload, transcoding and attachment workflow.
//
// The workflow is client-driven end to end: the server issues a presigned
// upload URL, the client uploads bytes directly to blob storage, confirms
// completion, starts transcoding, polls the job, and finally attaches the
// finished asset to exactly one owning collection.
type Service interface {
	// Upload URL issuance
	CreateUploadURL(ctx context.Context, req CreateUploadURLRequest) (*UploadTicket, error)
	RefreshUploadURL(ctx context.Context, req RefreshUploadURLRequest) (*UploadTicket, error)
	HasUploadSupport() bool

	// Transcoding
	StartTranscoding(ctx context.Context, req StartTranscodingRequest) (string, error)
	PollTranscoding(ctx context.Context, req PollTranscodingRequest) (*PollResult, error)

	// Completion and collection attachment
	CompleteAndAttach(ctx context.Context, req CompleteRequest) error
	CompleteAndAttachToPoint(ctx context.Context, req CompletePointRequest) error

	// Asset access
	GetAsset(ctx context.Context, id uuid.UUID) (*MediaAsset, error)
	ListAttachedMedia(ctx context.Context, target CollectionTarget) ([]*MediaAsset, error)
	ListThumbnails(ctx context.Context, assetID uuid.UUID) ([]*ThumbnailImage, error)
	DeleteAsset(ctx context.Context, req DeleteAssetRequest) error
}
