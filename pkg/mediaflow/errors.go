package mediaflow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrAssetNotFound indicates an asset was not found. Ownership mismatches
	// are reported with this error as well, so callers cannot probe for the
	// existence of other users' assets.
	ErrAssetNotFound = errors.New("media asset not found")

	// ErrUploadURL indicates presigned upload URL issuance failed
	ErrUploadURL = errors.New("could not issue upload url")

	// ErrTranscodeSubmit indicates the transcoding job could not be created
	ErrTranscodeSubmit = errors.New("could not submit transcoding job")

	// ErrPoll indicates the transcoding job status could not be read
	ErrPoll = errors.New("could not read transcoding job status")

	// ErrTranscodeFailed indicates the transcoding job ended in a hard error
	ErrTranscodeFailed = errors.New("transcoding job failed")

	// ErrEnrichment indicates thumbnail creation or attachment failed
	// mid-sequence; frames already attached stay attached
	ErrEnrichment = errors.New("thumbnail enrichment failed")

	// ErrTargetNotFound indicates the requested collection target does not exist
	ErrTargetNotFound = errors.New("collection target not found")

	// ErrNoTarget indicates no collection target was supplied
	ErrNoTarget = errors.New("no collection to add to")

	// ErrInvalidTransition indicates an asset state transition was attempted
	// out of order
	ErrInvalidTransition = errors.New("invalid asset state transition")

	// ErrUploadNotConfigured indicates no upload bucket is configured
	ErrUploadNotConfigured = errors.New("video upload is not configured")
)

// AssetError represents an error related to a media asset operation
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// TargetError represents an error related to a collection attachment
type TargetError struct {
	Target CollectionTarget
	Op     string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("collection operation %s failed for %s %s: %v", e.Op, e.Target.Kind, e.Target.ID, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}
