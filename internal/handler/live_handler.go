package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"appointment-management-api/internal/feed"
	"appointment-management-api/internal/middleware"
	"appointment-management-api/internal/model"
)

// LiveAppointments streams the viewer's listing over server-sent events.
// The first event names the stream; the client steers it (search, status,
// page) through UpdateLiveParams on a separate request. Each insert
// notification or accepted control change produces one "page" event with
// the full refreshed page. Errors during a refresh surface as "notice"
// events and the last good page stays on screen.
func (h *Handler) LiveAppointments(c *gin.Context) {
	params, err := listingParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	ctx := c.Request.Context()
	f := feed.New(h.engine, params, h.searchQuiet)

	streamID := uuid.New().String()
	h.streams.add(streamID, &liveStream{feed: f, viewerID: params.ViewerID, ctx: ctx})
	defer h.streams.remove(streamID)

	sub, cancel := h.hub.Subscribe()
	defer cancel()

	fmt.Fprintf(c.Writer, "event: stream\ndata: {\"stream_id\":%q}\n\n", streamID)
	flusher.Flush()

	f.Refresh(ctx)
	go f.Run(ctx, sub)

	for {
		select {
		case <-ctx.Done():
			return
		case page := <-f.Updates():
			body, err := json.Marshal(pageToJSON(page))
			if err != nil {
				log.WithError(err).Error("page encode failed")
				continue
			}
			fmt.Fprintf(c.Writer, "event: page\ndata: %s\n\n", body)
			flusher.Flush()
		case err := <-f.Errs():
			log.WithError(err).Warn("live refresh failed")
			fmt.Fprintf(c.Writer, "event: notice\ndata: {\"error\":\"refresh failed\"}\n\n")
			flusher.Flush()
		}
	}
}

type liveParamsRequest struct {
	Search *string `json:"search"`
	Status *string `json:"status"`
	Page   *int    `json:"page"`
}

// UpdateLiveParams steers an open stream. Search input is debounced: a
// burst of keystrokes runs one query, for the final term, once the quiet
// period passes. Search and status changes reset the stream to page 1.
// The refreshed page arrives on the stream itself, so the response here
// only acknowledges the change.
func (h *Handler) UpdateLiveParams(c *gin.Context) {
	s, ok := h.streams.get(c.Param("stream"))
	// someone else's stream looks exactly like a missing one
	if !ok || s.viewerID != middleware.UserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req liveParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Search == nil && req.Status == nil && req.Page == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to change"})
		return
	}
	if req.Status != nil && *req.Status != "" && !model.Status(*req.Status).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
		return
	}
	if req.Page != nil && *req.Page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
		return
	}

	if req.Status != nil {
		if err := s.feed.SetStatus(s.ctx, model.Status(*req.Status)); err != nil {
			log.WithError(err).Warn("status change refresh failed")
		}
	}
	if req.Page != nil {
		if err := s.feed.SetPage(s.ctx, *req.Page); err != nil {
			log.WithError(err).Warn("page change refresh failed")
		}
	}
	if req.Search != nil {
		s.feed.SetSearch(s.ctx, *req.Search)
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
