package mediaflow

import "github.com/google/uuid"

// Request DTOs

// CreateUploadURLRequest contains parameters for issuing a new upload URL.
// A fresh asset record is created for the calling user.
type CreateUploadURLRequest struct {
	TenantID uuid.UUID
	OwnerID  uuid.UUID
}

// RefreshUploadURLRequest re-issues the upload URL for an existing asset.
// The file key already assigned to the asset is reused; only the signed URL
// changes.
type RefreshUploadURLRequest struct {
	AssetID  uuid.UUID
	CallerID uuid.UUID
}

// StartTranscodingRequest contains parameters for submitting a transcoding
// job. PostLimitSeconds / PointLimitSeconds are per-target duration
// ceilings; whichever is supplied is clamped to the global 600s cap.
type StartTranscodingRequest struct {
	AssetID           uuid.UUID
	CallerID          uuid.UUID
	Aspect            Aspect
	PostLimitSeconds  int
	PointLimitSeconds int
}

// PollTranscodingRequest contains parameters for a status poll.
type PollTranscodingRequest struct {
	AssetID  uuid.UUID
	CallerID uuid.UUID
	JobID    string
}

// CompleteRequest confirms upload completion and attaches the asset to
// exactly one collection target. When more than one target id is supplied
// the first match in the order post, group, community, domain wins.
type CompleteRequest struct {
	AssetID  uuid.UUID
	CallerID uuid.UUID

	PostID      *uuid.UUID
	GroupID     *uuid.UUID
	CommunityID *uuid.UUID
	DomainID    *uuid.UUID

	// Carried into the transcript work package for post targets.
	AppLanguage     string
	BrowserLanguage string
}

// CompletePointRequest confirms upload completion and attaches the asset
// directly to a point.
type CompletePointRequest struct {
	AssetID  uuid.UUID
	CallerID uuid.UUID
	PointID  uuid.UUID
}

// DeleteAssetRequest soft-deletes an asset owned by the caller.
type DeleteAssetRequest struct {
	AssetID  uuid.UUID
	CallerID uuid.UUID
}
