package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/animeshelf/internal/event"
	"github.com/pokerjest/animeshelf/internal/importer"
	"github.com/pokerjest/animeshelf/internal/logging"
	"github.com/pokerjest/animeshelf/internal/parser"
)

// ProgressMessage is the payload of EventImportProgress.
type ProgressMessage struct {
	JobID string         `json:"job_id"`
	Event importer.Event `json:"event"`
}

// CompleteMessage is the payload of EventImportComplete.
type CompleteMessage struct {
	JobID    string            `json:"job_id"`
	Snapshot importer.Snapshot `json:"snapshot"`
}

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StartImportHandler accepts a multipart upload (file, user_id) and starts a
// background import.
func (s *Server) StartImportHandler(c *gin.Context) {
	userID, err := strconv.ParseUint(c.PostForm("user_id"), 10, 64)
	if err != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > s.MaxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "export is too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()

	entries, err := parser.ParseExport(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h, err := s.importer.Start(s.baseCtx, importer.Request{UserID: uint(userID), Entries: entries})
	switch {
	case errors.Is(err, importer.ErrJobRunning):
		resp := gin.H{"error": err.Error()}
		if running, ok := s.importer.Registry().Running(s.store); ok {
			resp["job_id"] = running.ID
		}
		c.JSON(http.StatusConflict, resp)
		return
	case errors.Is(err, importer.ErrNoEntries), errors.Is(err, importer.ErrNoUser):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	s.forward(h)

	logging.Info().Str("job_id", h.ID).Uint64("user_id", userID).Int("entries", len(entries)).Msg("Import accepted")
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     h.ID,
		"status_url": "/api/imports/" + h.ID,
		"events_url": "/api/imports/" + h.ID + "/events",
	})
}

// forward republishes the job's events on the bus, then a final snapshot. The
// forwarder entry is removed once the snapshot is out.
func (s *Server) forward(h *importer.JobHandle) {
	done := make(chan struct{})
	s.forwarders.Store(h.ID, done)

	go func() {
		defer close(done)
		for e := range h.Events() {
			s.bus.Publish(event.EventImportProgress, ProgressMessage{JobID: h.ID, Event: e})
		}
		<-h.Done()
		s.bus.Publish(event.EventImportComplete, CompleteMessage{JobID: h.ID, Snapshot: h.Snapshot()})
		s.forwarders.Delete(h.ID)
	}()
}

// forwarded returns a channel closed once every event of job id was published.
// ok is false for jobs without a forwarder and for jobs whose forwarder is done.
func (s *Server) forwarded(id string) (<-chan struct{}, bool) {
	v, ok := s.forwarders.Load(id)
	if !ok {
		return nil, false
	}
	return v.(chan struct{}), true
}

func (s *Server) GetImportHandler(c *gin.Context) {
	h, ok := s.importer.Registry().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "import not found"})
		return
	}
	c.JSON(http.StatusOK, h.Snapshot())
}

func (s *Server) CancelImportHandler(c *gin.Context) {
	h, ok := s.importer.Registry().Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "import not found"})
		return
	}
	h.Cancel()
	logging.Info().Str("job_id", h.ID).Msg("Import cancellation requested")
	c.JSON(http.StatusAccepted, h.Snapshot())
}

func (s *Server) GetSeriesHandler(c *gin.Context) {
	externalID, err := strconv.Atoi(c.Param("external_id"))
	if err != nil || externalID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid external id"})
		return
	}
	series, err := s.store.SeriesWithSeasons(c.Request.Context(), externalID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if series == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}
	c.JSON(http.StatusOK, series)
}
