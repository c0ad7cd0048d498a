package mediaflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/startup-factory/unitalk/pkg/mediaflow"
	"github.com/startup-factory/unitalk/pkg/mediaflow/repo/memory"
	memorystorage "github.com/startup-factory/unitalk/pkg/mediaflow/storage/memory"
)

// fakeTranscoder records submitted specs and serves canned job statuses
type fakeTranscoder struct {
	lastSpec  mediaflow.JobSpec
	submitted int
	jobID     string
	submitErr error
	status    *mediaflow.JobStatus
	readErr   error
}

func (f *fakeTranscoder) SubmitJob(ctx context.Context, spec mediaflow.JobSpec) (string, error) {
	f.lastSpec = spec
	f.submitted++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.jobID == "" {
		return "job-1", nil
	}
	return f.jobID, nil
}

func (f *fakeTranscoder) ReadJob(ctx context.Context, jobID string) (*mediaflow.JobStatus, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.status, nil
}

// fakeQueue records enqueued jobs
type fakeQueue struct {
	jobs []mediaflow.QueueJob
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job mediaflow.QueueJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

var testBuckets = mediaflow.BucketConfig{
	UploadBucket:    "upload-bucket",
	PublicBucket:    "public-bucket",
	ThumbnailBucket: "thumbs-bucket",
	Endpoint:        "s3.example.com",
}

type testEnv struct {
	svc        mediaflow.Service
	repo       *memory.Repository
	transcoder *fakeTranscoder
	queue      *fakeQueue
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	repo := memory.New()
	transcoder := &fakeTranscoder{}
	queue := &fakeQueue{}

	svc, err := mediaflow.New(
		mediaflow.WithRepository(repo),
		mediaflow.WithBlobSigner(memorystorage.New()),
		mediaflow.WithTranscoder(transcoder),
		mediaflow.WithBuckets(testBuckets),
		mediaflow.WithAttachHook(mediaflow.TranscriptHook(queue)),
		mediaflow.WithAttachDelay(0),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return &testEnv{svc: svc, repo: repo, transcoder: transcoder, queue: queue}
}

func createTestAsset(t *testing.T, env *testEnv, owner uuid.UUID) *mediaflow.UploadTicket {
	t.Helper()

	ticket, err := env.svc.CreateUploadURL(context.Background(), mediaflow.CreateUploadURLRequest{
		TenantID: uuid.New(),
		OwnerID:  owner,
	})
	require.NoError(t, err)
	return ticket
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []mediaflow.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []mediaflow.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []mediaflow.Option{
				mediaflow.WithRepository(memory.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := mediaflow.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreateUploadURL(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	ticket := createTestAsset(t, env, owner)

	assert.NotEqual(t, uuid.Nil, ticket.AssetID)
	assert.NotEmpty(t, ticket.URL)
	assert.True(t, strings.HasSuffix(ticket.FileKey, "_video"+ticket.AssetID.String()+".mp4"))
	assert.Len(t, strings.SplitN(ticket.FileKey, "_video", 2)[0], 7)

	asset, err := env.svc.GetAsset(ctx, ticket.AssetID)
	require.NoError(t, err)
	assert.Equal(t, mediaflow.AssetStatusPendingUpload, asset.Status)
	assert.Equal(t, owner, asset.OwnerID)
	assert.Equal(t, "upload-bucket", asset.Storage.UploadBucket)
	assert.Equal(t, ticket.URL, asset.Storage.UploadURL)
}

func TestCreateUploadURLWithoutSigner(t *testing.T) {
	svc, err := mediaflow.New(mediaflow.WithRepository(memory.New()))
	require.NoError(t, err)

	assert.False(t, svc.HasUploadSupport())

	_, err = svc.CreateUploadURL(context.Background(), mediaflow.CreateUploadURLRequest{
		TenantID: uuid.New(),
		OwnerID:  uuid.New(),
	})
	assert.ErrorIs(t, err, mediaflow.ErrUploadNotConfigured)
}

func TestRefreshUploadURL(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	ticket := createTestAsset(t, env, owner)

	refreshed, err := env.svc.RefreshUploadURL(ctx, mediaflow.RefreshUploadURLRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
	})
	require.NoError(t, err)

	// Same object key, fresh signature
	assert.Equal(t, ticket.FileKey, refreshed.FileKey)
	assert.NotEqual(t, ticket.URL, refreshed.URL)
}

func TestRefreshUploadURLWrongOwner(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	ticket := createTestAsset(t, env, uuid.New())

	_, err := env.svc.RefreshUploadURL(ctx, mediaflow.RefreshUploadURLRequest{
		AssetID:  ticket.AssetID,
		CallerID: uuid.New(),
	})
	assert.ErrorIs(t, err, mediaflow.ErrAssetNotFound)
}

func TestStartTranscoding(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	ticket := createTestAsset(t, env, owner)

	jobID, err := env.svc.StartTranscoding(ctx, mediaflow.StartTranscodingRequest{
		AssetID:          ticket.AssetID,
		CallerID:         owner,
		Aspect:           mediaflow.AspectPortrait,
		PostLimitSeconds: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	spec := env.transcoder.lastSpec
	assert.Equal(t, ticket.FileKey, spec.InputKey)
	assert.Equal(t, ticket.FileKey, spec.VideoKey)
	assert.Equal(t, strings.TrimSuffix(ticket.FileKey, ".mp4")+".flac", spec.AudioKey)
	assert.Equal(t, fmt.Sprintf("%s_thumbs-%s-{count}", ticket.FileKey, ticket.AssetID), spec.ThumbnailPattern)
	assert.Equal(t, mediaflow.AspectPortrait, spec.Aspect)
	assert.Equal(t, 300, spec.MaxDuration)

	asset, err := env.svc.GetAsset(ctx, ticket.AssetID)
	require.NoError(t, err)
	assert.Equal(t, mediaflow.AssetStatusTranscoding, asset.Status)
	assert.Equal(t, mediaflow.AspectPortrait, asset.Public.Aspect)
}

func TestStartTranscodingDurationCap(t *testing.T) {
	tests := []struct {
		name string
		req  mediaflow.StartTranscodingRequest
		want int
	}{
		{"post limit above cap", mediaflow.StartTranscodingRequest{PostLimitSeconds: 900}, 600},
		{"post limit below cap", mediaflow.StartTranscodingRequest{PostLimitSeconds: 300}, 300},
		{"point limit below cap", mediaflow.StartTranscodingRequest{PointLimitSeconds: 120}, 120},
		{"no limit", mediaflow.StartTranscodingRequest{}, 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestService(t)
			owner := uuid.New()
			ticket := createTestAsset(t, env, owner)

			req := tt.req
			req.AssetID = ticket.AssetID
			req.CallerID = owner

			_, err := env.svc.StartTranscoding(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.transcoder.lastSpec.MaxDuration)
		})
	}
}

func TestStartTranscodingSubmitFailure(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	ticket := createTestAsset(t, env, owner)
	env.transcoder.submitErr = errors.New("pipeline unavailable")

	_, err := env.svc.StartTranscoding(ctx, mediaflow.StartTranscodingRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
	})
	assert.ErrorIs(t, err, mediaflow.ErrTranscodeSubmit)

	// Upload confirmation persists even when the submission fails
	asset, err := env.svc.GetAsset(ctx, ticket.AssetID)
	require.NoError(t, err)
	assert.Equal(t, mediaflow.AssetStatusUploaded, asset.Status)
}

func startTranscodedAsset(t *testing.T, env *testEnv, owner uuid.UUID) *mediaflow.UploadTicket {
	t.Helper()

	ticket := createTestAsset(t, env, owner)
	_, err := env.svc.StartTranscoding(context.Background(), mediaflow.StartTranscodingRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
	})
	require.NoError(t, err)
	return ticket
}

func TestPollTranscodingProgressing(t *testing.T) {
	env := setupTestService(t)
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	env.transcoder.status = &mediaflow.JobStatus{
		ID:     "job-1",
		State:  mediaflow.JobStateProgressing,
		Detail: "27% converted",
	}

	result, err := env.svc.PollTranscoding(context.Background(), mediaflow.PollTranscodingRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		JobID:    "job-1",
	})
	require.NoError(t, err)
	assert.Equal(t, mediaflow.JobStateProgressing, result.Status)
	assert.Equal(t, "27% converted", result.Detail)

	// No thumbnails until the job completes
	thumbs, err := env.svc.ListThumbnails(context.Background(), ticket.AssetID)
	require.NoError(t, err)
	assert.Empty(t, thumbs)
}

func TestPollTranscodingComplete(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	env.transcoder.status = &mediaflow.JobStatus{
		ID:       "job-1",
		State:    mediaflow.JobStateComplete,
		Duration: 95,
	}

	result, err := env.svc.PollTranscoding(ctx, mediaflow.PollTranscodingRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		JobID:    "job-1",
	})
	require.NoError(t, err)
	assert.Equal(t, mediaflow.JobStateComplete, result.Status)

	thumbs, err := env.svc.ListThumbnails(ctx, ticket.AssetID)
	require.NoError(t, err)
	require.Len(t, thumbs, 9)

	for i, thumb := range thumbs {
		assert.Equal(t, i+1, thumb.Position)
		assert.Equal(t, "thumbs-bucket", thumb.Bucket)
		wantSuffix := fmt.Sprintf("_thumbs-%s-%05d.png", ticket.AssetID, i+1)
		assert.True(t, strings.HasSuffix(thumb.URL, wantSuffix), "thumb %d url %q", i+1, thumb.URL)
		assert.True(t, strings.HasPrefix(thumb.URL, "https://thumbs-bucket.s3.example.com/"))
	}
}

func TestPollTranscodingCompleteIsIdempotent(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	env.transcoder.status = &mediaflow.JobStatus{
		ID:       "job-1",
		State:    mediaflow.JobStateComplete,
		Duration: 40,
	}

	req := mediaflow.PollTranscodingRequest{AssetID: ticket.AssetID, CallerID: owner, JobID: "job-1"}

	_, err := env.svc.PollTranscoding(ctx, req)
	require.NoError(t, err)
	_, err = env.svc.PollTranscoding(ctx, req)
	require.NoError(t, err)

	// The second completion signal must not attach a second batch
	thumbs, err := env.svc.ListThumbnails(ctx, ticket.AssetID)
	require.NoError(t, err)
	assert.Len(t, thumbs, 4)
}

func TestPollTranscodingSoftSuccess(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	// Video output completed, audio extract failed: the input had no audio
	// channel. Reported as Complete.
	env.transcoder.status = &mediaflow.JobStatus{
		ID:       "job-1",
		State:    mediaflow.JobStateError,
		Duration: 25,
		Outputs: []mediaflow.JobOutputStatus{
			{Status: mediaflow.JobStateComplete},
			{Status: mediaflow.JobStateError, Detail: "no audio stream"},
		},
	}

	result, err := env.svc.PollTranscoding(ctx, mediaflow.PollTranscodingRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		JobID:    "job-1",
	})
	require.NoError(t, err)
	assert.Equal(t, mediaflow.JobStateComplete, result.Status)

	thumbs, err := env.svc.ListThumbnails(ctx, ticket.AssetID)
	require.NoError(t, err)
	assert.Len(t, thumbs, 2)
}

func TestPollTranscodingHardError(t *testing.T) {
	env := setupTestService(t)
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	env.transcoder.status = &mediaflow.JobStatus{
		ID:     "job-1",
		State:  mediaflow.JobStateError,
		Detail: "input file unreadable",
		Outputs: []mediaflow.JobOutputStatus{
			{Status: mediaflow.JobStateError, Detail: "input file unreadable"},
			{Status: mediaflow.JobStateError},
		},
	}

	_, err := env.svc.PollTranscoding(context.Background(), mediaflow.PollTranscodingRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		JobID:    "job-1",
	})
	assert.ErrorIs(t, err, mediaflow.ErrTranscodeFailed)
}

func TestPollTranscodingWrongOwner(t *testing.T) {
	env := setupTestService(t)
	ticket := startTranscodedAsset(t, env, uuid.New())

	_, err := env.svc.PollTranscoding(context.Background(), mediaflow.PollTranscodingRequest{
		AssetID:  ticket.AssetID,
		CallerID: uuid.New(),
		JobID:    "job-1",
	})
	assert.ErrorIs(t, err, mediaflow.ErrAssetNotFound)
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		duration float64
		want     int
	}{
		{0, 1},
		{5, 1},
		{10, 1},
		{20, 2},
		{95, 9},
		{600, 60},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mediaflow.FrameCount(tt.duration), "duration %v", tt.duration)
	}
}

func completeTranscoding(t *testing.T, env *testEnv, ticket *mediaflow.UploadTicket, owner uuid.UUID) {
	t.Helper()

	env.transcoder.status = &mediaflow.JobStatus{
		ID:       "job-1",
		State:    mediaflow.JobStateComplete,
		Duration: 30,
	}
	_, err := env.svc.PollTranscoding(context.Background(), mediaflow.PollTranscodingRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		JobID:    "job-1",
	})
	require.NoError(t, err)
}

func TestCompleteAndAttach(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)
	completeTranscoding(t, env, ticket, owner)

	postID := uuid.New()
	env.repo.RegisterCollection(mediaflow.Target(mediaflow.CollectionPost, postID))

	err := env.svc.CompleteAndAttach(ctx, mediaflow.CompleteRequest{
		AssetID:     ticket.AssetID,
		CallerID:    owner,
		PostID:      &postID,
		AppLanguage: "de",
	})
	require.NoError(t, err)

	asset, err := env.svc.GetAsset(ctx, ticket.AssetID)
	require.NoError(t, err)
	assert.Equal(t, mediaflow.AssetStatusViewable, asset.Status)
	require.Len(t, asset.Formats, 1)
	assert.Equal(t, "https://public-bucket.s3.example.com/"+ticket.FileKey, asset.Formats[0])

	attached, err := env.svc.ListAttachedMedia(ctx, mediaflow.Target(mediaflow.CollectionPost, postID))
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.Equal(t, ticket.AssetID, attached[0].ID)
}

func TestCompleteAndAttachTargetPrecedence(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	postID := uuid.New()
	groupID := uuid.New()
	env.repo.RegisterCollection(mediaflow.Target(mediaflow.CollectionPost, postID))
	env.repo.RegisterCollection(mediaflow.Target(mediaflow.CollectionGroup, groupID))

	err := env.svc.CompleteAndAttach(ctx, mediaflow.CompleteRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		PostID:   &postID,
		GroupID:  &groupID,
	})
	require.NoError(t, err)

	postMedia, err := env.svc.ListAttachedMedia(ctx, mediaflow.Target(mediaflow.CollectionPost, postID))
	require.NoError(t, err)
	assert.Len(t, postMedia, 1)

	groupMedia, err := env.svc.ListAttachedMedia(ctx, mediaflow.Target(mediaflow.CollectionGroup, groupID))
	require.NoError(t, err)
	assert.Empty(t, groupMedia)
}

func TestCompleteAndAttachNoTarget(t *testing.T) {
	env := setupTestService(t)
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	err := env.svc.CompleteAndAttach(context.Background(), mediaflow.CompleteRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
	})
	assert.ErrorIs(t, err, mediaflow.ErrNoTarget)
}

func TestCompleteAndAttachUnknownCollection(t *testing.T) {
	env := setupTestService(t)
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	postID := uuid.New() // never registered
	err := env.svc.CompleteAndAttach(context.Background(), mediaflow.CompleteRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		PostID:   &postID,
	})
	assert.ErrorIs(t, err, mediaflow.ErrTargetNotFound)

	// Status untouched when the target lookup fails
	asset, err := env.svc.GetAsset(context.Background(), ticket.AssetID)
	require.NoError(t, err)
	assert.Equal(t, mediaflow.AssetStatusTranscoding, asset.Status)
}

func TestCompleteAndAttachFromPendingUpload(t *testing.T) {
	env := setupTestService(t)
	owner := uuid.New()
	ticket := createTestAsset(t, env, owner)

	postID := uuid.New()
	env.repo.RegisterCollection(mediaflow.Target(mediaflow.CollectionPost, postID))

	err := env.svc.CompleteAndAttach(context.Background(), mediaflow.CompleteRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		PostID:   &postID,
	})
	assert.ErrorIs(t, err, mediaflow.ErrInvalidTransition)
}

func TestTranscriptHookFiresForPosts(t *testing.T) {
	env := setupTestService(t)
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	postID := uuid.New()
	env.repo.RegisterCollection(mediaflow.Target(mediaflow.CollectionPost, postID))

	err := env.svc.CompleteAndAttach(context.Background(), mediaflow.CompleteRequest{
		AssetID:         ticket.AssetID,
		CallerID:        owner,
		PostID:          &postID,
		AppLanguage:     "en",
		BrowserLanguage: "en-GB",
	})
	require.NoError(t, err)

	require.Len(t, env.queue.jobs, 1)
	job := env.queue.jobs[0]
	assert.Equal(t, mediaflow.TranscriptJobName, job.Name)
	assert.Equal(t, "high", job.Priority)
	assert.True(t, job.RemoveOnComplete)
	assert.Equal(t, ticket.AssetID.String(), job.Payload["videoId"])
	assert.Equal(t, postID.String(), job.Payload["postId"])
	assert.Equal(t, "en", job.Payload["appLanguage"])
	assert.Equal(t, "en-GB", job.Payload["browserLanguage"])
}

func TestTranscriptHookSkipsOtherTargets(t *testing.T) {
	env := setupTestService(t)
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	groupID := uuid.New()
	env.repo.RegisterCollection(mediaflow.Target(mediaflow.CollectionGroup, groupID))

	err := env.svc.CompleteAndAttach(context.Background(), mediaflow.CompleteRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		GroupID:  &groupID,
	})
	require.NoError(t, err)
	assert.Empty(t, env.queue.jobs)
}

func TestHookFailureDoesNotFailAttachment(t *testing.T) {
	env := setupTestService(t)
	env.queue.err = errors.New("broker down")
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	postID := uuid.New()
	env.repo.RegisterCollection(mediaflow.Target(mediaflow.CollectionPost, postID))

	err := env.svc.CompleteAndAttach(context.Background(), mediaflow.CompleteRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		PostID:   &postID,
	})
	require.NoError(t, err)

	asset, err := env.svc.GetAsset(context.Background(), ticket.AssetID)
	require.NoError(t, err)
	assert.Equal(t, mediaflow.AssetStatusViewable, asset.Status)
}

func TestCompleteAndAttachToPoint(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	ticket := startTranscodedAsset(t, env, owner)

	pointID := uuid.New()
	env.repo.RegisterCollection(mediaflow.Target(mediaflow.CollectionPoint, pointID))

	err := env.svc.CompleteAndAttachToPoint(ctx, mediaflow.CompletePointRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
		PointID:  pointID,
	})
	require.NoError(t, err)

	attached, err := env.svc.ListAttachedMedia(ctx, mediaflow.Target(mediaflow.CollectionPoint, pointID))
	require.NoError(t, err)
	require.Len(t, attached, 1)

	// Points never get transcript jobs
	assert.Empty(t, env.queue.jobs)
}

func TestDeleteAsset(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	ticket := createTestAsset(t, env, owner)

	err := env.svc.DeleteAsset(ctx, mediaflow.DeleteAssetRequest{
		AssetID:  ticket.AssetID,
		CallerID: owner,
	})
	require.NoError(t, err)

	_, err = env.svc.GetAsset(ctx, ticket.AssetID)
	assert.ErrorIs(t, err, mediaflow.ErrAssetNotFound)
}

func TestDeleteAssetWrongOwner(t *testing.T) {
	env := setupTestService(t)
	ticket := createTestAsset(t, env, uuid.New())

	err := env.svc.DeleteAsset(context.Background(), mediaflow.DeleteAssetRequest{
		AssetID:  ticket.AssetID,
		CallerID: uuid.New(),
	})
	assert.ErrorIs(t, err, mediaflow.ErrAssetNotFound)
}
