package mediaflow

import "context"

// AttachHook runs after an asset has been attached to a collection target.
// Hooks are best effort: the attachment has already succeeded when they run,
// and a hook failure is logged, never propagated to the caller.
type AttachHook func(ctx context.Context, asset *MediaAsset, target CollectionTarget, req CompleteRequest) error

// TranscriptJobName is the queue job that extracts a voice-to-text
// transcript from the audio track of a finished video.
const TranscriptJobName = "process-voice-to-text"

// TranscriptHook returns a hook that enqueues a transcript job when an
// asset is attached to a post. Other target kinds are ignored. Jobs run at
// high priority and are removed from the queue once complete.
func TranscriptHook(queue JobQueue) AttachHook {
	return func(ctx context.Context, asset *MediaAsset, target CollectionTarget, req CompleteRequest) error {
		if target.Kind != CollectionPost {
			return nil
		}
		return queue.Enqueue(ctx, QueueJob{
			Name: TranscriptJobName,
			Payload: map[string]interface{}{
				"type":            "create-video-transcript",
				"videoId":         asset.ID.String(),
				"postId":          target.ID.String(),
				"appLanguage":     req.AppLanguage,
				"browserLanguage": req.BrowserLanguage,
			},
			Priority:         "high",
			RemoveOnComplete: true,
		})
	}
}
