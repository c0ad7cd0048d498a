package mediaflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// Global ceiling on the transcoded duration, seconds. Per-target
	// ceilings are clamped to this.
	maxDurationCeiling = 600

	// Seconds between sampled thumbnail frames.
	thumbnailInterval = 10

	// Pause between thumbnail attachments so consumers sorting by
	// last-modified timestamp recover frame order even on coarse clocks.
	// This is an ordering guarantee, not an optimization.
	defaultAttachDelay = time.Millisecond

	uploadContentType = "video/mp4"
)

// BucketConfig names the blob storage buckets the workflow spans: raw
// uploads land in UploadBucket, the transcoder writes playable output to
// PublicBucket and frames to ThumbnailBucket, all served via Endpoint.
type BucketConfig struct {
	UploadBucket    string
	PublicBucket    string
	ThumbnailBucket string
	Endpoint        string
}

// service implements the Service interface
type service struct {
	repository  Repository
	signer      BlobSigner
	transcoder  Transcoder
	buckets     BucketConfig
	hooks       []AttachHook
	attachDelay time.Duration
	sleep       func(time.Duration)
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobSigner sets the presigned upload URL issuer
func WithBlobSigner(signer BlobSigner) Option {
	return func(s *service) {
		s.signer = signer
	}
}

// WithTranscoder sets the external transcoding service client
func WithTranscoder(t Transcoder) Option {
	return func(s *service) {
		s.transcoder = t
	}
}

// WithBuckets sets the bucket layout recorded on every new asset
func WithBuckets(b BucketConfig) Option {
	return func(s *service) {
		s.buckets = b
	}
}

// WithAttachHook appends a post-attach hook
func WithAttachHook(h AttachHook) Option {
	return func(s *service) {
		s.hooks = append(s.hooks, h)
	}
}

// WithAttachDelay overrides the pause between thumbnail attachments.
func WithAttachDelay(d time.Duration) Option {
	return func(s *service) {
		s.attachDelay = d
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		attachDelay: defaultAttachDelay,
		sleep:       time.Sleep,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// Upload URL issuance

func (s *service) HasUploadSupport() bool {
	return s.signer != nil && s.buckets.UploadBucket != ""
}

func (s *service) CreateUploadURL(ctx context.Context, req CreateUploadURLRequest) (*UploadTicket, error) {
	now := time.Now().UTC()
	asset := &MediaAsset{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		OwnerID:   req.OwnerID,
		Status:    AssetStatusPendingUpload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repository.CreateAsset(ctx, asset); err != nil {
		return nil, &AssetError{AssetID: asset.ID, Op: "create", Err: err}
	}

	return s.issueUploadURL(ctx, asset)
}

func (s *service) RefreshUploadURL(ctx context.Context, req RefreshUploadURLRequest) (*UploadTicket, error) {
	asset, err := s.getOwnedAsset(ctx, req.AssetID, req.CallerID)
	if err != nil {
		return nil, err
	}

	if ok, err := canIssueUploadURL(asset.Status); !ok {
		return nil, &AssetError{AssetID: asset.ID, Op: "refresh_upload_url", Err: err}
	}

	return s.issueUploadURL(ctx, asset)
}

// issueUploadURL assigns the asset its storage key (once) and persists a
// fresh presigned URL plus the bucket layout. Re-issuance reuses the key so
// a retried upload lands on the same object.
func (s *service) issueUploadURL(ctx context.Context, asset *MediaAsset) (*UploadTicket, error) {
	if !s.HasUploadSupport() {
		return nil, &AssetError{AssetID: asset.ID, Op: "issue_upload_url", Err: ErrUploadNotConfigured}
	}

	if asset.Storage.FileKey == "" {
		asset.Storage.FileKey = randomFileKey(asset.ID)
	}

	url, err := s.signer.GetUploadURL(ctx, asset.Storage.FileKey, uploadContentType)
	if err != nil {
		return nil, &AssetError{
			AssetID: asset.ID,
			Op:      "issue_upload_url",
			Err:     fmt.Errorf("%w: %v", ErrUploadURL, err),
		}
	}

	asset.Storage.UploadBucket = s.buckets.UploadBucket
	asset.Storage.PublicBucket = s.buckets.PublicBucket
	asset.Storage.ThumbnailBucket = s.buckets.ThumbnailBucket
	asset.Storage.Endpoint = s.buckets.Endpoint
	asset.Storage.ContentType = uploadContentType
	asset.Storage.UploadURL = url
	asset.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateAsset(ctx, asset); err != nil {
		return nil, &AssetError{AssetID: asset.ID, Op: "issue_upload_url", Err: err}
	}

	return &UploadTicket{AssetID: asset.ID, URL: url, FileKey: asset.Storage.FileKey}, nil
}

// Transcoding

func (s *service) StartTranscoding(ctx context.Context, req StartTranscodingRequest) (string, error) {
	asset, err := s.getOwnedAsset(ctx, req.AssetID, req.CallerID)
	if err != nil {
		return "", err
	}

	if ok, err := canStartTranscoding(asset.Status); !ok {
		return "", &AssetError{AssetID: asset.ID, Op: "start_transcoding", Err: err}
	}

	if s.transcoder == nil {
		return "", &AssetError{AssetID: asset.ID, Op: "start_transcoding", Err: ErrTranscodeSubmit}
	}

	asset.Storage.MaxDuration = effectiveMaxDuration(req)
	if req.Aspect == AspectPortrait || req.Aspect == AspectLandscape {
		asset.Storage.Aspect = req.Aspect
		asset.Public.Aspect = req.Aspect
	}

	// Starting transcoding doubles as the upload confirmation.
	asset.Status = AssetStatusUploaded
	asset.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateAsset(ctx, asset); err != nil {
		return "", &AssetError{AssetID: asset.ID, Op: "start_transcoding", Err: err}
	}

	jobID, err := s.transcoder.SubmitJob(ctx, JobSpec{
		InputKey:         asset.Storage.FileKey,
		VideoKey:         asset.Storage.FileKey,
		AudioKey:         audioKey(asset.Storage.FileKey),
		ThumbnailPattern: thumbnailPattern(asset.Storage.FileKey, asset.ID),
		Aspect:           asset.Storage.Aspect,
		MaxDuration:      asset.Storage.MaxDuration,
	})
	if err != nil {
		// Metadata set above stays; only the status transition is withheld.
		return "", &AssetError{
			AssetID: asset.ID,
			Op:      "start_transcoding",
			Err:     fmt.Errorf("%w: %v", ErrTranscodeSubmit, err),
		}
	}

	asset.Status = AssetStatusTranscoding
	asset.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateAsset(ctx, asset); err != nil {
		return "", &AssetError{AssetID: asset.ID, Op: "start_transcoding", Err: err}
	}

	return jobID, nil
}

// effectiveMaxDuration clamps the supplied per-target ceiling to the global
// cap; without a ceiling the cap itself applies.
func effectiveMaxDuration(req StartTranscodingRequest) int {
	switch {
	case req.PostLimitSeconds > 0:
		return min(req.PostLimitSeconds, maxDurationCeiling)
	case req.PointLimitSeconds > 0:
		return min(req.PointLimitSeconds, maxDurationCeiling)
	default:
		return maxDurationCeiling
	}
}

func (s *service) PollTranscoding(ctx context.Context, req PollTranscodingRequest) (*PollResult, error) {
	asset, err := s.getOwnedAsset(ctx, req.AssetID, req.CallerID)
	if err != nil {
		return nil, err
	}

	if s.transcoder == nil {
		return nil, &AssetError{AssetID: asset.ID, Op: "poll_transcoding", Err: ErrPoll}
	}

	job, err := s.transcoder.ReadJob(ctx, req.JobID)
	if err != nil {
		return nil, &AssetError{
			AssetID: asset.ID,
			Op:      "poll_transcoding",
			Err:     fmt.Errorf("%w: %v", ErrPoll, err),
		}
	}

	switch job.State {
	case JobStateComplete:
		if err := s.enrichThumbnails(ctx, asset, job.Duration); err != nil {
			return nil, err
		}
		return &PollResult{Status: JobStateComplete, Detail: job.Detail}, nil

	case JobStateError:
		// The audio extract failing while the video output completed means
		// the input simply had no audio channel. Treat as complete.
		if isNoAudioError(job) {
			if err := s.enrichThumbnails(ctx, asset, job.Duration); err != nil {
				return nil, err
			}
			return &PollResult{Status: JobStateComplete}, nil
		}
		return nil, &AssetError{
			AssetID: asset.ID,
			Op:      "poll_transcoding",
			Err:     fmt.Errorf("%w: %s", ErrTranscodeFailed, job.Detail),
		}

	default:
		return &PollResult{Status: job.State, Detail: job.Detail}, nil
	}
}

// isNoAudioError reports the soft-success shape: primary (video) output
// complete, secondary (audio) output failed.
func isNoAudioError(job *JobStatus) bool {
	return len(job.Outputs) > 1 &&
		job.Outputs[0].Status == JobStateComplete &&
		job.Outputs[1].Status == JobStateError
}

// Thumbnail enrichment

// FrameCount returns how many thumbnail frames a job of the reported
// duration yields: one per sampling interval, at least one.
func FrameCount(duration float64) int {
	return max(1, int(duration)/thumbnailInterval)
}

// enrichThumbnails attaches one image record per sampled frame, strictly in
// frame order. The enrichment marker is claimed first so duplicate or
// concurrent completion signals run this at most once. Failure aborts the
// remaining sequence; frames already attached stay attached.
func (s *service) enrichThumbnails(ctx context.Context, asset *MediaAsset, duration float64) error {
	claimed, err := s.repository.MarkAssetEnriched(ctx, asset.ID)
	if err != nil {
		return &AssetError{
			AssetID: asset.ID,
			Op:      "enrich_thumbnails",
			Err:     fmt.Errorf("%w: %v", ErrEnrichment, err),
		}
	}
	if !claimed {
		return nil
	}

	frames := FrameCount(duration)
	for frame := 1; frame <= frames; frame++ {
		thumb := &ThumbnailImage{
			ID:        uuid.New(),
			AssetID:   asset.ID,
			Bucket:    asset.Storage.ThumbnailBucket,
			URL:       ThumbnailURL(asset, frame),
			Position:  frame,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repository.CreateThumbnail(ctx, thumb); err != nil {
			return &AssetError{
				AssetID: asset.ID,
				Op:      "enrich_thumbnails",
				Err:     fmt.Errorf("%w: frame %d: %v", ErrEnrichment, frame, err),
			}
		}
		s.sleep(s.attachDelay)
	}

	return nil
}

// Completion and collection attachment

func (s *service) CompleteAndAttach(ctx context.Context, req CompleteRequest) error {
	target, err := ResolveTarget(req)
	if err != nil {
		return err
	}

	asset, err := s.getOwnedAsset(ctx, req.AssetID, req.CallerID)
	if err != nil {
		return err
	}

	return s.completeAndAttach(ctx, asset, target, req)
}

func (s *service) CompleteAndAttachToPoint(ctx context.Context, req CompletePointRequest) error {
	asset, err := s.getOwnedAsset(ctx, req.AssetID, req.CallerID)
	if err != nil {
		return err
	}

	target := CollectionTarget{Kind: CollectionPoint, ID: req.PointID}
	return s.completeAndAttach(ctx, asset, target, CompleteRequest{
		AssetID:  req.AssetID,
		CallerID: req.CallerID,
	})
}

func (s *service) completeAndAttach(ctx context.Context, asset *MediaAsset, target CollectionTarget, req CompleteRequest) error {
	if ok, err := canMarkViewable(asset.Status); !ok {
		return &AssetError{AssetID: asset.ID, Op: "complete", Err: err}
	}

	if err := s.repository.FindCollection(ctx, target); err != nil {
		return &TargetError{Target: target, Op: "find", Err: err}
	}

	asset.Status = AssetStatusViewable
	asset.Formats = []string{PublicURL(asset.Storage)}
	asset.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateAsset(ctx, asset); err != nil {
		return &AssetError{AssetID: asset.ID, Op: "complete", Err: err}
	}

	if err := s.repository.AttachToCollection(ctx, target, asset.ID); err != nil {
		return &TargetError{Target: target, Op: "attach", Err: err}
	}

	for _, hook := range s.hooks {
		if err := hook(ctx, asset, target, req); err != nil {
			slog.Error("attach hook failed",
				"asset_id", asset.ID.String(),
				"target_kind", string(target.Kind),
				"target_id", target.ID.String(),
				"error", err)
		}
	}

	return nil
}

// Asset access

func (s *service) GetAsset(ctx context.Context, id uuid.UUID) (*MediaAsset, error) {
	return s.repository.GetAsset(ctx, id)
}

func (s *service) ListAttachedMedia(ctx context.Context, target CollectionTarget) ([]*MediaAsset, error) {
	return s.repository.ListCollectionAssets(ctx, target)
}

func (s *service) ListThumbnails(ctx context.Context, assetID uuid.UUID) ([]*ThumbnailImage, error) {
	return s.repository.ListThumbnails(ctx, assetID)
}

func (s *service) DeleteAsset(ctx context.Context, req DeleteAssetRequest) error {
	asset, err := s.getOwnedAsset(ctx, req.AssetID, req.CallerID)
	if err != nil {
		return err
	}

	if err := s.repository.DeleteAsset(ctx, asset.ID); err != nil {
		return &AssetError{AssetID: asset.ID, Op: "delete", Err: err}
	}

	return nil
}

// getOwnedAsset loads an asset and verifies the caller owns it. Ownership
// mismatches report not-found so callers cannot probe for other users'
// assets.
func (s *service) getOwnedAsset(ctx context.Context, id, callerID uuid.UUID) (*MediaAsset, error) {
	asset, err := s.repository.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.OwnerID != callerID {
		return nil, ErrAssetNotFound
	}
	return asset, nil
}
