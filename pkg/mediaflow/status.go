package mediaflow

import "fmt"

// Asset lifecycle: pending_upload -> uploaded -> transcoding -> viewable.
// Each transition check returns whether the operation is allowed from the
// current status.

// canIssueUploadURL checks if an upload URL may be issued for an asset.
// Re-issuance before the upload is confirmed is allowed; the signed URL is
// only valid for an hour and clients retry.
func canIssueUploadURL(status AssetStatus) (bool, error) {
	switch status {
	case AssetStatusPendingUpload, AssetStatusUploaded:
		return true, nil
	case AssetStatusTranscoding:
		return false, fmt.Errorf("%w: asset is being transcoded (status: %s)", ErrInvalidTransition, status)
	case AssetStatusViewable:
		return false, fmt.Errorf("%w: asset is already viewable (status: %s)", ErrInvalidTransition, status)
	case AssetStatusFailed:
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, status)
	}
}

// canStartTranscoding checks if a transcoding job may be submitted. Starting
// transcoding doubles as the upload confirmation, so pending_upload is
// accepted and promoted to uploaded on the way through.
func canStartTranscoding(status AssetStatus) (bool, error) {
	switch status {
	case AssetStatusPendingUpload, AssetStatusUploaded, AssetStatusFailed:
		return true, nil
	case AssetStatusTranscoding:
		return false, fmt.Errorf("%w: transcoding already in progress (status: %s)", ErrInvalidTransition, status)
	case AssetStatusViewable:
		return false, fmt.Errorf("%w: asset is already viewable (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, status)
	}
}

// canMarkViewable checks if the owner may confirm completion. An asset that
// skipped transcoding (uploaded only) may still be completed.
func canMarkViewable(status AssetStatus) (bool, error) {
	switch status {
	case AssetStatusUploaded, AssetStatusTranscoding, AssetStatusViewable:
		return true, nil
	case AssetStatusPendingUpload:
		return false, fmt.Errorf("%w: upload has not been confirmed (status: %s)", ErrInvalidTransition, status)
	case AssetStatusFailed:
		return false, fmt.Errorf("%w: transcoding failed (status: %s)", ErrInvalidTransition, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, status)
	}
}
