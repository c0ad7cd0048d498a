// Package mediaflow implements the asynchronous media upload workflow:
// a presigned upload URL is issued, the client uploads bytes directly to
// blob storage, a transcoding job is submitted to an external service, the
// client polls the job until it completes, thumbnail records are derived
// from the reported duration, and the finished asset is attached to exactly
// one owning collection (post, group, community, domain or point).
//
// The package owns the asset lifecycle state machine and the error
// taxonomy; blob storage, the transcoding service and the background work
// queue are injected behind small interfaces so tests run against fakes.
package mediaflow
