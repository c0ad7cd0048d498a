package mediaflow

import (
    "time"

    "github.com/google/uuid"
)

// AssetStatus is the domain type for media asset lifecycle states.
type AssetStatus string

// Asset status constants (typed).
const (
    AssetStatusPendingUpload AssetStatus = "pending_upload"
    AssetStatusUploaded      AssetStatus = "uploaded"
    AssetStatusTranscoding   AssetStatus = "transcoding"
    AssetStatusViewable      AssetStatus = "viewable"
    AssetStatusFailed        AssetStatus = "failed"
)

// Aspect is the declared orientation of an uploaded video.
type Aspect string

const (
    AspectPortrait  Aspect = "portrait"
    AspectLandscape Aspect = "landscape"
)

// JobState is the state of an external transcoding job as observed through
// polling. The external service owns the job; nothing here is persisted.
type JobState string

const (
    JobStateSubmitted   JobState = "Submitted"
    JobStateProgressing JobState = "Progressing"
    JobStateComplete    JobState = "Complete"
    JobStateError       JobState = "Error"
)

// StorageMeta holds the private storage metadata for an asset. None of it is
// exposed to clients directly; PublicMeta carries the safe subset.
type StorageMeta struct {
    UploadBucket    string `json:"upload_bucket"`
    PublicBucket    string `json:"public_bucket"`
    ThumbnailBucket string `json:"thumbnail_bucket"`
    Endpoint        string `json:"endpoint"`
    FileKey         string `json:"file_key"`
    ContentType     string `json:"content_type"`
    MaxDuration     int    `json:"max_duration,omitempty"`
    Aspect          Aspect `json:"aspect,omitempty"`
    UploadURL       string `json:"upload_url,omitempty"`
}

// PublicMeta is the subset of asset metadata safe to expose externally.
type PublicMeta struct {
    Aspect Aspect `json:"aspect,omitempty"`
}

// MediaAsset represents a user-uploaded media object tracked through upload,
// transcoding and collection attachment.
//
// Formats is populated only once the asset has been marked viewable by its
// owner. Enriched is set atomically before thumbnail creation begins so that
// duplicate completion signals never double-attach thumbnails.
type MediaAsset struct {
    ID        uuid.UUID   `json:"id"`
    TenantID  uuid.UUID   `json:"tenant_id"`
    OwnerID   uuid.UUID   `json:"owner_id"`
    Status    AssetStatus `json:"status"`
    Storage   StorageMeta `json:"-"`
    Public    PublicMeta  `json:"public_meta"`
    Formats   []string    `json:"formats,omitempty"`
    Enriched  bool        `json:"-"`
    CreatedAt time.Time   `json:"created_at"`
    UpdatedAt time.Time   `json:"updated_at"`
    DeletedAt *time.Time  `json:"deleted_at,omitempty"`
}

// ThumbnailImage is a single sampled frame attached to an asset. Attachment
// order equals frame order; consumers rely on it as display order.
type ThumbnailImage struct {
    ID        uuid.UUID `json:"id"`
    AssetID   uuid.UUID `json:"asset_id"`
    Bucket    string    `json:"bucket"`
    URL       string    `json:"url"`
    Position  int       `json:"position"`
    CreatedAt time.Time `json:"created_at"`
}

// CollectionKind identifies the owning entity type an asset attaches to.
type CollectionKind string

const (
    CollectionPost      CollectionKind = "post"
    CollectionGroup     CollectionKind = "group"
    CollectionCommunity CollectionKind = "community"
    CollectionDomain    CollectionKind = "domain"
    CollectionPoint     CollectionKind = "point"
)

// CollectionTarget is a tagged reference to the single owning collection an
// asset is attached to.
type CollectionTarget struct {
    Kind CollectionKind `json:"kind"`
    ID   uuid.UUID      `json:"id"`
}

// UploadTicket is the result of issuing a presigned upload URL.
type UploadTicket struct {
    AssetID uuid.UUID `json:"asset_id"`
    URL     string    `json:"presigned_url"`
    FileKey string    `json:"file_key"`
}

// JobOutputStatus is the per-output status reported by the transcoding
// service for a single job output.
type JobOutputStatus struct {
    Status JobState
    Detail string
}

// JobStatus is a snapshot of an external transcoding job.
type JobStatus struct {
    ID       string
    State    JobState
    Detail   string
    Duration float64
    Outputs  []JobOutputStatus
}

// PollResult is what a status poll reports back to the client. A soft
// success (primary output complete, audio output failed) is synthesized as
// Complete before it reaches the caller.
type PollResult struct {
    Status JobState `json:"status"`
    Detail string   `json:"status_detail,omitempty"`
}
