package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/devstream-shilpa/Media-Platform/internal/cache"
	"github.com/devstream-shilpa/Media-Platform/internal/media"
	"github.com/devstream-shilpa/Media-Platform/internal/store"
)

type uploadURLRequest struct {
	FileName string `json:"fileName" validate:"required,max=255"`
	FileType string `json:"fileType" validate:"required,max=100"`
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	me := callerFrom(r.Context())
	logger := hlog.FromRequest(r)

	var req uploadURLRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	fileName := cleanFilename(req.FileName)
	if err := validateFilename(fileName); err != nil {
		logger.Warn().Err(err).Str("fileName", req.FileName).Msg("Filename validation failed")
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateContentType(req.FileType); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := media.UploadKey(me.UserID, fileName, s.now())
	rec, err := s.store.CreateMedia(r.Context(), store.NewMedia{
		OwnerID:   me.UserID,
		ObjectKey: key,
		FileName:  fileName,
		FileType:  req.FileType,
	})
	if errors.Is(err, store.ErrKeyTaken) {
		httpError(w, http.StatusConflict, "an upload with this name is already in progress, retry")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create media record", err.Error())
		return
	}

	uploadURL, err := s.objects.PresignPut(r.Context(), key, req.FileType, s.opts.UploadURLTTL)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to generate upload URL", err.Error())
		return
	}

	s.dropListing(r, cache.ListingKey(me.UserID))
	logger.Info().Str("mediaId", rec.ID).Str("key", key).Msg("Upload URL issued")

	respondJSON(w, http.StatusCreated, map[string]any{
		"mediaId":   rec.ID,
		"uploadUrl": uploadURL,
		"s3Key":     key,
		"expiresIn": int(s.opts.UploadURLTTL.Seconds()),
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	me := callerFrom(r.Context())
	rec, ok := s.ownedMedia(w, r, me)
	if !ok {
		return
	}
	if rec.Status != media.StatusPending {
		httpError(w, http.StatusConflict, "media is already "+string(rec.Status))
		return
	}

	msgID, err := s.jobs.Enqueue(r.Context(), media.Job{
		MediaID:  rec.ID,
		UserID:   rec.OwnerID,
		S3Key:    rec.ObjectKey,
		FileType: rec.FileType,
	})
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to queue processing", err.Error())
		return
	}
	hlog.FromRequest(r).Info().Str("mediaId", rec.ID).Str("messageId", msgID).Msg("Processing queued")
	respondJSON(w, http.StatusAccepted, map[string]string{"id": rec.ID, "status": string(rec.Status)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	me := callerFrom(r.Context())
	s.serveListing(w, r, cache.ListingKey(me.UserID), func(ctx context.Context) ([]media.Record, error) {
		return s.store.ListByOwner(ctx, me.UserID)
	})
}

func (s *Server) handleListShared(w http.ResponseWriter, r *http.Request) {
	me := callerFrom(r.Context())
	s.serveListing(w, r, cache.SharedListingKey(me.UserID), func(ctx context.Context) ([]media.Record, error) {
		return s.store.ListSharedWith(ctx, me.UserID)
	})
}

// serveListing answers from the cache when it can and fills it on a miss.
// Cache errors degrade to a store read.
func (s *Server) serveListing(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) ([]media.Record, error)) {
	logger := hlog.FromRequest(r)

	recs, hit, err := s.cache.GetListing(r.Context(), key)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Listing cache read failed")
	}
	if hit {
		w.Header().Set("X-Cache", "HIT")
		respondJSON(w, http.StatusOK, map[string]any{"media": recs})
		return
	}

	recs, err = load(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to list media", err.Error())
		return
	}
	if recs == nil {
		recs = []media.Record{}
	}
	if err := s.cache.SetListing(r.Context(), key, recs); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Listing cache write failed")
	}
	w.Header().Set("X-Cache", "MISS")
	respondJSON(w, http.StatusOK, map[string]any{"media": recs})
}

// mediaView is the status API shape plus short-lived read URLs.
type mediaView struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	Status       media.Status    `json:"status"`
	FileName     string          `json:"fileName"`
	FileType     string          `json:"fileType"`
	Metadata     json.RawMessage `json:"metadata"`
	ThumbnailKey string          `json:"thumbnailKey,omitempty"`
	ErrorDetail  string          `json:"errorDetail,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	ProcessedAt  *time.Time      `json:"processedAt"`
	ViewURL      string          `json:"viewUrl,omitempty"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	me := callerFrom(r.Context())
	id := chi.URLParam(r, "id")
	if !validID(id) {
		httpError(w, http.StatusNotFound, "media not found")
		return
	}
	rec, err := s.store.GetMedia(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		httpError(w, http.StatusNotFound, "media not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load media", err.Error())
		return
	}
	if rec.OwnerID != me.UserID {
		allowed, err := s.store.CanView(r.Context(), id, me.UserID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load media", err.Error())
			return
		}
		if !allowed {
			httpError(w, http.StatusNotFound, "media not found")
			return
		}
	}

	meta, err := media.MarshalMetadata(rec.Metadata)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to encode media", err.Error())
		return
	}
	view := mediaView{
		ID:           rec.ID,
		OwnerID:      rec.OwnerID,
		Status:       rec.Status,
		FileName:     rec.FileName,
		FileType:     rec.FileType,
		Metadata:     meta,
		ThumbnailKey: rec.ThumbnailKey,
		ErrorDetail:  rec.ErrorDetail,
		CreatedAt:    rec.CreatedAt,
		ProcessedAt:  rec.ProcessedAt,
	}
	if rec.Status == media.StatusReady {
		if view.ViewURL, err = s.objects.PresignGet(r.Context(), rec.ObjectKey, s.opts.ViewURLTTL); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to generate view URL", err.Error())
			return
		}
		if rec.ThumbnailKey != "" {
			if view.ThumbnailURL, err = s.objects.PresignGet(r.Context(), rec.ThumbnailKey, s.opts.ViewURLTTL); err != nil {
				httpError(w, http.StatusInternalServerError, "failed to generate thumbnail URL", err.Error())
				return
			}
		}
	}
	respondJSON(w, http.StatusOK, view)
}

type shareRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	me := callerFrom(r.Context())
	var req shareRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, ok := s.ownedMedia(w, r, me)
	if !ok {
		return
	}

	to, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		httpError(w, http.StatusNotFound, "recipient not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to share media", err.Error())
		return
	}
	if to.ID == me.UserID {
		httpError(w, http.StatusBadRequest, "cannot share media with yourself")
		return
	}

	created, err := s.store.CreateShare(r.Context(), rec.ID, me.UserID, to.ID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to share media", err.Error())
		return
	}
	if created {
		s.dropListing(r, cache.SharedListingKey(to.ID))
	}

	shareURL, err := s.objects.PresignGet(r.Context(), rec.ObjectKey, s.opts.ViewURLTTL)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to generate share URL", err.Error())
		return
	}
	hlog.FromRequest(r).Info().Str("mediaId", rec.ID).Str("toUserId", to.ID).Bool("created", created).Msg("Media shared")

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]any{"shareUrl": shareURL, "expiresIn": int(s.opts.ViewURLTTL.Seconds())})
}

// ownedMedia loads {id} and writes a 404 unless the caller owns it.
func (s *Server) ownedMedia(w http.ResponseWriter, r *http.Request, me caller) (*media.Record, bool) {
	id := chi.URLParam(r, "id")
	if !validID(id) {
		httpError(w, http.StatusNotFound, "media not found")
		return nil, false
	}
	rec, err := s.store.GetMedia(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && rec.OwnerID != me.UserID) {
		httpError(w, http.StatusNotFound, "media not found")
		return nil, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load media", err.Error())
		return nil, false
	}
	return rec, true
}

func (s *Server) dropListing(r *http.Request, key string) {
	if err := s.cache.InvalidateKey(r.Context(), key); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("key", key).Msg("Listing cache invalidation failed")
	}
}
