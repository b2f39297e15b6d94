// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vitrine-hq/vitrine/internal/logging"
	"github.com/vitrine-hq/vitrine/internal/signage"
)

// SignageHandlers serves the signage CRUD and device manifest endpoints.
type SignageHandlers struct {
	store    *signage.Store
	validate *validator.Validate
	now      func() time.Time
}

// NewSignageHandlers creates the signage handler set.
func NewSignageHandlers(store *signage.Store) *SignageHandlers {
	return &SignageHandlers{
		store:    store,
		validate: validator.New(),
		now:      time.Now,
	}
}

// decodeValid decodes the body into req and validates it, responding on
// failure. Returns false when the caller should stop.
func (h *SignageHandlers) decodeValid(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body", nil)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "request validation failed", validationDetails(err))
		return false
	}
	return true
}

// validationDetails flattens validator errors into field:constraint pairs.
func validationDetails(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}

// respondStoreError maps store errors onto API errors.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, signage.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, what+" not found", nil)
		return
	}
	respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "storage operation failed", nil)
}

// ContentRequest is the create/update body for content items.
type ContentRequest struct {
	Name        string `json:"name" validate:"required"`
	MIMEType    string `json:"mime_type" validate:"required"`
	URI         string `json:"uri" validate:"required"`
	SizeBytes   int64  `json:"size_bytes" validate:"gte=0"`
	DurationSec int    `json:"duration_sec" validate:"gte=0"`
	Checksum    string `json:"checksum"`
}

func (h *SignageHandlers) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	now := h.now().UTC()
	item := &signage.ContentItem{
		ID:          uuid.New().String(),
		Name:        req.Name,
		MIMEType:    req.MIMEType,
		URI:         req.URI,
		SizeBytes:   req.SizeBytes,
		DurationSec: req.DurationSec,
		Checksum:    req.Checksum,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.PutContent(item); err != nil {
		respondStoreError(w, r, err, "content")
		return
	}
	respondData(w, r, http.StatusCreated, item)
}

func (h *SignageHandlers) GetContent(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.GetContent(chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err, "content")
		return
	}
	respondData(w, r, http.StatusOK, item)
}

func (h *SignageHandlers) ListContent(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListContent()
	if err != nil {
		respondStoreError(w, r, err, "content")
		return
	}
	respondData(w, r, http.StatusOK, items)
}

func (h *SignageHandlers) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.store.GetContent(id)
	if err != nil {
		respondStoreError(w, r, err, "content")
		return
	}

	var req ContentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	existing.Name = req.Name
	existing.MIMEType = req.MIMEType
	existing.URI = req.URI
	existing.SizeBytes = req.SizeBytes
	existing.DurationSec = req.DurationSec
	existing.Checksum = req.Checksum
	existing.UpdatedAt = h.now().UTC()

	if err := h.store.PutContent(existing); err != nil {
		respondStoreError(w, r, err, "content")
		return
	}
	respondData(w, r, http.StatusOK, existing)
}

func (h *SignageHandlers) DeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteContent(chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, r, err, "content")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlaylistEntryRequest is one entry in a playlist body.
type PlaylistEntryRequest struct {
	ContentID   string `json:"content_id" validate:"required"`
	DurationSec int    `json:"duration_sec" validate:"gte=0"`
}

// PlaylistRequest is the create/update body for playlists.
type PlaylistRequest struct {
	Name    string                 `json:"name" validate:"required"`
	Entries []PlaylistEntryRequest `json:"entries" validate:"dive"`
}

func (req *PlaylistRequest) entries() []signage.PlaylistEntry {
	entries := make([]signage.PlaylistEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, signage.PlaylistEntry{
			ContentID:   e.ContentID,
			DurationSec: e.DurationSec,
		})
	}
	return entries
}

func (h *SignageHandlers) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req PlaylistRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	now := h.now().UTC()
	pl := &signage.Playlist{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Entries:   req.entries(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.PutPlaylist(pl); err != nil {
		respondStoreError(w, r, err, "playlist")
		return
	}
	respondData(w, r, http.StatusCreated, pl)
}

func (h *SignageHandlers) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	pl, err := h.store.GetPlaylist(chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err, "playlist")
		return
	}
	respondData(w, r, http.StatusOK, pl)
}

func (h *SignageHandlers) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	pls, err := h.store.ListPlaylists()
	if err != nil {
		respondStoreError(w, r, err, "playlist")
		return
	}
	respondData(w, r, http.StatusOK, pls)
}

func (h *SignageHandlers) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.store.GetPlaylist(id)
	if err != nil {
		respondStoreError(w, r, err, "playlist")
		return
	}

	var req PlaylistRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	existing.Name = req.Name
	existing.Entries = req.entries()
	existing.UpdatedAt = h.now().UTC()

	if err := h.store.PutPlaylist(existing); err != nil {
		respondStoreError(w, r, err, "playlist")
		return
	}
	respondData(w, r, http.StatusOK, existing)
}

func (h *SignageHandlers) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePlaylist(chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, r, err, "playlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ScheduleRequest is the create/update body for schedules.
type ScheduleRequest struct {
	Name       string         `json:"name" validate:"required"`
	PlaylistID string         `json:"playlist_id" validate:"required"`
	Days       []time.Weekday `json:"days" validate:"dive,gte=0,lte=6"`
	Start      string         `json:"start" validate:"required"`
	End        string         `json:"end" validate:"required"`
	Timezone   string         `json:"timezone"`
	Priority   int            `json:"priority"`
	Enabled    bool           `json:"enabled"`
}

func (h *SignageHandlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	now := h.now().UTC()
	sc := &signage.Schedule{
		ID:         uuid.New().String(),
		Name:       req.Name,
		PlaylistID: req.PlaylistID,
		Days:       req.Days,
		Start:      req.Start,
		End:        req.End,
		Timezone:   req.Timezone,
		Priority:   req.Priority,
		Enabled:    req.Enabled,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := sc.ValidateWindow(); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, err.Error(), nil)
		return
	}
	if err := h.store.PutSchedule(sc); err != nil {
		respondStoreError(w, r, err, "schedule")
		return
	}
	respondData(w, r, http.StatusCreated, sc)
}

func (h *SignageHandlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sc, err := h.store.GetSchedule(chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err, "schedule")
		return
	}
	respondData(w, r, http.StatusOK, sc)
}

func (h *SignageHandlers) ListSchedules(w http.ResponseWriter, r *http.Request) {
	scs, err := h.store.ListSchedules()
	if err != nil {
		respondStoreError(w, r, err, "schedule")
		return
	}
	respondData(w, r, http.StatusOK, scs)
}

func (h *SignageHandlers) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.store.GetSchedule(id)
	if err != nil {
		respondStoreError(w, r, err, "schedule")
		return
	}

	var req ScheduleRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	existing.Name = req.Name
	existing.PlaylistID = req.PlaylistID
	existing.Days = req.Days
	existing.Start = req.Start
	existing.End = req.End
	existing.Timezone = req.Timezone
	existing.Priority = req.Priority
	existing.Enabled = req.Enabled
	existing.UpdatedAt = h.now().UTC()

	if err := existing.ValidateWindow(); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, err.Error(), nil)
		return
	}
	if err := h.store.PutSchedule(existing); err != nil {
		respondStoreError(w, r, err, "schedule")
		return
	}
	respondData(w, r, http.StatusOK, existing)
}

func (h *SignageHandlers) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSchedule(chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, r, err, "schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeviceRequest is the create/update body for devices.
type DeviceRequest struct {
	Name        string   `json:"name" validate:"required"`
	Location    string   `json:"location"`
	Tags        []string `json:"tags"`
	ScheduleIDs []string `json:"schedule_ids"`
}

func (h *SignageHandlers) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	now := h.now().UTC()
	d := &signage.Device{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Location:    req.Location,
		Tags:        req.Tags,
		ScheduleIDs: req.ScheduleIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.PutDevice(d); err != nil {
		respondStoreError(w, r, err, "device")
		return
	}
	respondData(w, r, http.StatusCreated, d)
}

func (h *SignageHandlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.GetDevice(chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err, "device")
		return
	}
	respondData(w, r, http.StatusOK, d)
}

func (h *SignageHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.ListDevices()
	if err != nil {
		respondStoreError(w, r, err, "device")
		return
	}
	respondData(w, r, http.StatusOK, ds)
}

func (h *SignageHandlers) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.store.GetDevice(id)
	if err != nil {
		respondStoreError(w, r, err, "device")
		return
	}

	var req DeviceRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	existing.Name = req.Name
	existing.Location = req.Location
	existing.Tags = req.Tags
	existing.ScheduleIDs = req.ScheduleIDs
	existing.UpdatedAt = h.now().UTC()

	if err := h.store.PutDevice(existing); err != nil {
		respondStoreError(w, r, err, "device")
		return
	}
	respondData(w, r, http.StatusOK, existing)
}

func (h *SignageHandlers) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteDevice(chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, r, err, "device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetManifest serves GET /api/v1/devices/{id}/manifest: what the device
// should play right now. The call doubles as a device check-in.
func (h *SignageHandlers) GetManifest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	now := h.now()

	m, err := h.store.ResolveManifest(id, now)
	if err != nil {
		respondStoreError(w, r, err, "device")
		return
	}

	// Check-in is best effort; a failed touch never blocks playback.
	if err := h.store.TouchDevice(id, now.UTC()); err != nil {
		logging.Warn().Err(err).Str("device_id", id).Msg("Device check-in failed")
	}

	respondData(w, r, http.StatusOK, m)
}
