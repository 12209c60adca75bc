package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"appointment-management-api/internal/blob"
	"appointment-management-api/internal/middleware"
	"appointment-management-api/internal/model"
	"appointment-management-api/internal/query"
	"appointment-management-api/internal/store"
)

const dateLayout = "2006-01-02"

// westernmost civil offset; the date field carries no timezone, so "today"
// is judged against the last place on earth where the submitted calendar
// day could still be running
var westmost = time.FixedZone("UTC-12", -12*60*60)

// minCreationDate returns midnight UTC of the current day in the westernmost
// offset. A date before it is already over for every client.
func minCreationDate(now time.Time) time.Time {
	w := now.In(westmost)
	return time.Date(w.Year(), w.Month(), w.Day(), 0, 0, 0, 0, time.UTC)
}

var timeRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

type appointmentJSON struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Status       string   `json:"status"`
	AudioMessage string   `json:"audio_message,omitempty"`
	UserIDs      []string `json:"user_ids"`
	CreatedBy    string   `json:"created_by"`
	IsUpcoming   bool     `json:"is_upcoming"`
}

func toJSON(a model.Appointment, now time.Time) appointmentJSON {
	return appointmentJSON{
		ID:           a.ID,
		Title:        a.Title,
		Description:  a.Description,
		Date:         a.Date.Format(dateLayout),
		Time:         a.Time,
		Status:       string(a.Status),
		AudioMessage: a.AudioMessage,
		UserIDs:      a.UserIDs,
		CreatedBy:    a.CreatedBy,
		IsUpcoming:   a.UpcomingAt(now),
	}
}

type pageJSON struct {
	Appointments []appointmentJSON `json:"appointments"`
	Upcoming     []appointmentJSON `json:"upcoming"`
	Past         []appointmentJSON `json:"past"`
	TotalCount   int               `json:"total_count"`
	TotalPages   int               `json:"total_pages"`
	Page         int               `json:"page"`
	PageSize     int               `json:"page_size"`
}

func pageToJSON(p *query.Page) pageJSON {
	out := pageJSON{
		Appointments: make([]appointmentJSON, 0, len(p.Items)),
		Upcoming:     make([]appointmentJSON, 0, len(p.Upcoming)),
		Past:         make([]appointmentJSON, 0, len(p.Past)),
		TotalCount:   p.TotalCount,
		TotalPages:   p.TotalPages,
		Page:         p.Page,
		PageSize:     p.PageSize,
	}
	for _, a := range p.Items {
		out.Appointments = append(out.Appointments, toJSON(a, p.FetchedAt))
	}
	for _, a := range p.Upcoming {
		out.Upcoming = append(out.Upcoming, toJSON(a, p.FetchedAt))
	}
	for _, a := range p.Past {
		out.Past = append(out.Past, toJSON(a, p.FetchedAt))
	}
	return out
}

// listingParams reads the viewer's listing state off the query string.
func listingParams(c *gin.Context) (query.Params, error) {
	p := query.Params{
		ViewerID: middleware.UserID(c),
		Search:   c.Query("search"),
		Page:     1,
		Sort:     query.SortAscending,
	}
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, errors.New("page must be a positive integer")
		}
		p.Page = n
	}
	if raw := c.Query("status"); raw != "" {
		s := model.Status(raw)
		if !s.Valid() {
			return p, errors.New("unknown status filter")
		}
		p.Status = s
	}
	if c.Query("sort") == string(query.SortDescending) {
		p.Sort = query.SortDescending
	}
	return p, nil
}

func (h *Handler) ListAppointments(c *gin.Context) {
	params, err := listingParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.engine.Fetch(c.Request.Context(), params)
	if err != nil {
		log.WithError(err).Error("appointment fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch appointments"})
		return
	}
	c.JSON(http.StatusOK, pageToJSON(page))
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	uid := middleware.UserID(c)
	ctx := c.Request.Context()

	title := c.PostForm("title")
	description := c.PostForm("description")
	dateRaw := c.PostForm("date")
	timeRaw := c.PostForm("time")
	inviteeID := c.PostForm("invitee_id")

	if len(title) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must be at least 2 characters"})
		return
	}
	if description != "" && len(description) < 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description must be at least 10 characters"})
		return
	}
	date, err := time.Parse(dateLayout, dateRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required as YYYY-MM-DD"})
		return
	}
	if date.Before(minCreationDate(time.Now())) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date cannot be in the past"})
		return
	}
	if !timeRe.MatchString(timeRaw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time must be HH:MM"})
		return
	}
	if len(timeRaw) == 4 {
		timeRaw = "0" + timeRaw
	}
	if inviteeID == "" || inviteeID == uid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "an invitee other than yourself is required"})
		return
	}
	if _, err := h.store.UserByID(ctx, inviteeID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown invitee"})
		return
	}

	// the clip goes to the blob store first: if that fails the whole
	// creation fails, a row must never promise an attachment it lost
	audioURL := ""
	if file, err := c.FormFile("audio"); err == nil && file != nil {
		if h.blobs == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audio storage not configured"})
			return
		}
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable audio attachment"})
			return
		}
		defer src.Close()

		contentType := file.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "audio/mpeg"
		}
		audioURL, err = h.blobs.Upload(ctx, blob.AudioKey(uid, time.Now()), contentType, src)
		if err != nil {
			log.WithError(err).Error("audio upload failed, aborting creation")
			c.JSON(http.StatusBadGateway, gin.H{"error": "audio upload failed"})
			return
		}
	}

	appt := &model.Appointment{
		ID:           uuid.New().String(),
		Title:        title,
		Description:  description,
		Date:         date,
		Time:         timeRaw,
		Status:       model.StatusPending,
		AudioMessage: audioURL,
		UserIDs:      []string{uid, inviteeID},
		CreatedBy:    uid,
	}
	if err := h.store.InsertAppointment(ctx, appt); err != nil {
		log.WithError(err).Error("appointment insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to schedule appointment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"appointment": toJSON(*appt, time.Now())})
}

// action dispatches one status transition and returns the refreshed listing
// so the caller sees the new state without a second round trip.
func (h *Handler) action(next model.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.UserID(c)
		ctx := c.Request.Context()
		id := c.Param("id")

		appt, err := h.store.GetAppointment(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err != nil {
			log.WithError(err).WithField("appointment_id", id).Error("appointment lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		// non-participants get 404, not 403, to hide existence
		if !appt.HasParticipant(uid) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if err := appt.Authorize(uid, next); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "action not allowed"})
			return
		}

		ok, err := h.store.UpdateAppointmentStatus(ctx, id, next)
		if err != nil {
			log.WithError(err).WithField("appointment_id", id).Error("status update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !ok {
			// a concurrent transition won the race
			c.JSON(http.StatusConflict, gin.H{"error": "appointment already settled"})
			return
		}

		appt.Status = next
		resp := gin.H{"appointment": toJSON(*appt, time.Now())}

		// refresh with whatever listing state the client sent along
		if params, perr := listingParams(c); perr == nil {
			if page, ferr := h.engine.Fetch(ctx, params); ferr == nil {
				resp["listing"] = pageToJSON(page)
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
