package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/startup-factory/unitalk/pkg/mediaflow"
)

// MediaHandler handles the media upload and transcoding workflow endpoints
type MediaHandler struct {
	service mediaflow.Service
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(service mediaflow.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

// Routes returns the router for media endpoints
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/support", h.GetUploadSupport)
	r.Post("/", h.CreateUploadURL)
	r.Get("/{media_id}", h.GetAsset)
	r.Delete("/{media_id}", h.DeleteAsset)
	r.Post("/{media_id}/upload-url", h.RefreshUploadURL)
	r.Post("/{media_id}/transcode", h.StartTranscoding)
	r.Get("/{media_id}/transcode/{job_id}", h.PollTranscoding)
	r.Post("/{media_id}/complete", h.Complete)
	r.Post("/{media_id}/complete-point", h.CompletePoint)
	r.Get("/{media_id}/thumbnails", h.ListThumbnails)

	return r
}

// UploadSupportResponse reports whether presigned uploads are configured
type UploadSupportResponse struct {
	HasUploadSupport bool `json:"has_upload_support"`
}

// GetUploadSupport reports whether this deployment can issue upload URLs
func (h *MediaHandler) GetUploadSupport(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, UploadSupportResponse{HasUploadSupport: h.service.HasUploadSupport()})
}

// UploadTicketResponse is the response body for an issued upload URL
type UploadTicketResponse struct {
	MediaID      string `json:"media_id"`
	PresignedURL string `json:"presigned_url"`
	FileKey      string `json:"file_key"`
}

// CreateUploadURL creates a new media asset and returns its upload URL
func (h *MediaHandler) CreateUploadURL(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ticket, err := h.service.CreateUploadURL(r.Context(), mediaflow.CreateUploadURLRequest{
		TenantID: caller.TenantID,
		OwnerID:  caller.UserID,
	})
	if err != nil {
		slog.Error("Failed to create upload URL", "owner_id", caller.UserID.String(), "error", err)
		h.respondError(w, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, uploadTicketResponse(ticket))
}

// RefreshUploadURL re-issues the upload URL for an existing asset
func (h *MediaHandler) RefreshUploadURL(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	mediaID, err := uuid.Parse(chi.URLParam(r, "media_id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	ticket, err := h.service.RefreshUploadURL(r.Context(), mediaflow.RefreshUploadURLRequest{
		AssetID:  mediaID,
		CallerID: caller.UserID,
	})
	if err != nil {
		slog.Error("Failed to refresh upload URL", "media_id", mediaID.String(), "error", err)
		h.respondError(w, err)
		return
	}

	render.JSON(w, r, uploadTicketResponse(ticket))
}

func uploadTicketResponse(ticket *mediaflow.UploadTicket) UploadTicketResponse {
	return UploadTicketResponse{
		MediaID:      ticket.AssetID.String(),
		PresignedURL: ticket.URL,
		FileKey:      ticket.FileKey,
	}
}

// StartTranscodingRequest is the request body for starting transcoding
type StartTranscodingRequest struct {
	Aspect            string `json:"aspect,omitempty"`
	PostLimitSeconds  int    `json:"post_limit_seconds,omitempty"`
	PointLimitSeconds int    `json:"point_limit_seconds,omitempty"`
}

// StartTranscodingResponse carries the external job id for later polling
type StartTranscodingResponse struct {
	JobID string `json:"job_id"`
}

// StartTranscoding confirms the upload and submits the transcoding job
func (h *MediaHandler) StartTranscoding(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	mediaID, err := uuid.Parse(chi.URLParam(r, "media_id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	var req StartTranscodingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Fail to decode request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	jobID, err := h.service.StartTranscoding(r.Context(), mediaflow.StartTranscodingRequest{
		AssetID:           mediaID,
		CallerID:          caller.UserID,
		Aspect:            mediaflow.Aspect(req.Aspect),
		PostLimitSeconds:  req.PostLimitSeconds,
		PointLimitSeconds: req.PointLimitSeconds,
	})
	if err != nil {
		slog.Error("Failed to start transcoding", "media_id", mediaID.String(), "error", err)
		h.respondError(w, err)
		return
	}

	render.JSON(w, r, StartTranscodingResponse{JobID: jobID})
}

// PollTranscodingResponse is the response body for a status poll
type PollTranscodingResponse struct {
	Status       string `json:"status"`
	StatusDetail string `json:"status_detail,omitempty"`
}

// PollTranscoding reads the transcoding job status; on completion it also
// attaches thumbnails before reporting back.
func (h *MediaHandler) PollTranscoding(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	mediaID, err := uuid.Parse(chi.URLParam(r, "media_id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.PollTranscoding(r.Context(), mediaflow.PollTranscodingRequest{
		AssetID:  mediaID,
		CallerID: caller.UserID,
		JobID:    jobID,
	})
	if err != nil {
		slog.Error("Failed to poll transcoding", "media_id", mediaID.String(), "job_id", jobID, "error", err)
		h.respondError(w, err)
		return
	}

	render.JSON(w, r, PollTranscodingResponse{
		Status:       string(result.Status),
		StatusDetail: result.Detail,
	})
}

// CompleteRequest is the request body for completing the workflow. Exactly
// one collection reference is used; when several are present the first in
// field order wins.
type CompleteRequest struct {
	PostID          string `json:"post_id,omitempty"`
	GroupID         string `json:"group_id,omitempty"`
	CommunityID     string `json:"community_id,omitempty"`
	DomainID        string `json:"domain_id,omitempty"`
	AppLanguage     string `json:"app_language,omitempty"`
	BrowserLanguage string `json:"browser_language,omitempty"`
}

// Complete marks the asset viewable and attaches it to its collection
func (h *MediaHandler) Complete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	mediaID, err := uuid.Parse(chi.URLParam(r, "media_id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Fail to decode request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	serviceReq := mediaflow.CompleteRequest{
		AssetID:         mediaID,
		CallerID:        caller.UserID,
		AppLanguage:     req.AppLanguage,
		BrowserLanguage: req.BrowserLanguage,
	}
	if serviceReq.PostID, err = parseOptionalUUID(req.PostID); err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}
	if serviceReq.GroupID, err = parseOptionalUUID(req.GroupID); err != nil {
		http.Error(w, "Invalid group ID", http.StatusBadRequest)
		return
	}
	if serviceReq.CommunityID, err = parseOptionalUUID(req.CommunityID); err != nil {
		http.Error(w, "Invalid community ID", http.StatusBadRequest)
		return
	}
	if serviceReq.DomainID, err = parseOptionalUUID(req.DomainID); err != nil {
		http.Error(w, "Invalid domain ID", http.StatusBadRequest)
		return
	}

	if err := h.service.CompleteAndAttach(r.Context(), serviceReq); err != nil {
		slog.Error("Failed to complete media", "media_id", mediaID.String(), "error", err)
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompletePointRequest is the request body for attaching to a point
type CompletePointRequest struct {
	PointID string `json:"point_id"`
}

// CompletePoint marks the asset viewable and attaches it to a point
func (h *MediaHandler) CompletePoint(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	mediaID, err := uuid.Parse(chi.URLParam(r, "media_id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	var req CompletePointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Fail to decode request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pointID, err := uuid.Parse(req.PointID)
	if err != nil {
		http.Error(w, "Invalid point ID", http.StatusBadRequest)
		return
	}

	if err := h.service.CompleteAndAttachToPoint(r.Context(), mediaflow.CompletePointRequest{
		AssetID:  mediaID,
		CallerID: caller.UserID,
		PointID:  pointID,
	}); err != nil {
		slog.Error("Failed to complete media for point", "media_id", mediaID.String(), "error", err)
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MediaResponse is the response body for a media asset
type MediaResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	OwnerID   string    `json:"owner_id"`
	Status    string    `json:"status"`
	Aspect    string    `json:"aspect,omitempty"`
	Formats   []string  `json:"formats,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func mediaResponse(asset *mediaflow.MediaAsset) MediaResponse {
	return MediaResponse{
		ID:        asset.ID.String(),
		TenantID:  asset.TenantID.String(),
		OwnerID:   asset.OwnerID.String(),
		Status:    string(asset.Status),
		Aspect:    string(asset.Public.Aspect),
		Formats:   asset.Formats,
		CreatedAt: asset.CreatedAt,
		UpdatedAt: asset.UpdatedAt,
	}
}

// GetAsset retrieves a media asset by ID
func (h *MediaHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	mediaID, err := uuid.Parse(chi.URLParam(r, "media_id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	asset, err := h.service.GetAsset(r.Context(), mediaID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	render.JSON(w, r, mediaResponse(asset))
}

// DeleteAsset soft-deletes a media asset
func (h *MediaHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	mediaID, err := uuid.Parse(chi.URLParam(r, "media_id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteAsset(r.Context(), mediaflow.DeleteAssetRequest{
		AssetID:  mediaID,
		CallerID: caller.UserID,
	}); err != nil {
		slog.Error("Failed to delete media", "media_id", mediaID.String(), "error", err)
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ThumbnailResponse is the response body for a thumbnail image
type ThumbnailResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// ListThumbnails lists thumbnails for an asset in frame order
func (h *MediaHandler) ListThumbnails(w http.ResponseWriter, r *http.Request) {
	mediaID, err := uuid.Parse(chi.URLParam(r, "media_id"))
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	thumbs, err := h.service.ListThumbnails(r.Context(), mediaID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := make([]ThumbnailResponse, 0, len(thumbs))
	for _, thumb := range thumbs {
		resp = append(resp, ThumbnailResponse{
			ID:       thumb.ID.String(),
			URL:      thumb.URL,
			Position: thumb.Position,
		})
	}

	render.JSON(w, r, resp)
}

func parseOptionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// respondError maps domain errors to HTTP statuses
func (h *MediaHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mediaflow.ErrAssetNotFound), errors.Is(err, mediaflow.ErrTargetNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, mediaflow.ErrNoTarget):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, mediaflow.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, mediaflow.ErrUploadNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
