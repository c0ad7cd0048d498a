package mediaflow

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	fileKeyTokenLen = 7
	fileKeyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// randomFileKey generates the storage key for an asset: a random
// alphanumeric token, a fixed "_video" infix, the asset id and the .mp4
// extension. The token keeps keys unguessable on the public bucket.
func randomFileKey(assetID uuid.UUID) string {
	buf := make([]byte, fileKeyTokenLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform source is broken
		panic(fmt.Sprintf("mediaflow: reading random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = fileKeyAlphabet[int(b)%len(fileKeyAlphabet)]
	}
	return string(buf) + "_video" + assetID.String() + ".mp4"
}

// PublicURL returns the playback URL for the re-muxed video on the public
// bucket.
func PublicURL(meta StorageMeta) string {
	return fmt.Sprintf("https://%s.%s/%s", meta.PublicBucket, meta.Endpoint, meta.FileKey)
}

// ThumbnailURL returns the deterministic URL for a sampled frame. Frame
// numbers are 1-based and zero-padded to five digits, matching the pattern
// the transcoder writes thumbnails with.
func ThumbnailURL(asset *MediaAsset, frame int) string {
	name := fmt.Sprintf("%s_thumbs-%s-%05d.png", asset.Storage.FileKey, asset.ID, frame)
	return fmt.Sprintf("https://%s.%s/%s", asset.Storage.ThumbnailBucket, asset.Storage.Endpoint, name)
}

// thumbnailPattern is the frame naming pattern handed to the transcoding
// service; {count} is expanded by the service to the zero-padded frame
// number ThumbnailURL reconstructs.
func thumbnailPattern(fileKey string, assetID uuid.UUID) string {
	return fmt.Sprintf("%s_thumbs-%s-{count}", fileKey, assetID)
}

// audioKey derives the lossless audio extract key from the video file key.
func audioKey(fileKey string) string {
	return strings.TrimSuffix(fileKey, ".mp4") + ".flac"
}
