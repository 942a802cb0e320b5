package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pokerjest/animeshelf/internal/event"
	"github.com/pokerjest/animeshelf/internal/logging"
)

// ImportEventsHandler streams one job's progress as Server-Sent Events. The
// stream ends after the job's complete snapshot.
func (s *Server) ImportEventsHandler(c *gin.Context) {
	id := c.Param("id")
	h, ok := s.importer.Registry().Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "import not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// 非阻塞转发，慢客户端丢弃进度消息
	clientChan := make(chan event.Event, 64)
	bridgeHandler := func(e event.Event) {
		switch p := e.Payload.(type) {
		case ProgressMessage:
			if p.JobID != id {
				return
			}
		case CompleteMessage:
			if p.JobID != id {
				return
			}
		default:
			return
		}
		select {
		case clientChan <- e:
		default:
		}
	}

	progressSub := s.bus.Subscribe(event.EventImportProgress, bridgeHandler)
	completeSub := s.bus.Subscribe(event.EventImportComplete, bridgeHandler)
	defer func() {
		s.bus.Unsubscribe(event.EventImportProgress, progressSub)
		s.bus.Unsubscribe(event.EventImportComplete, completeSub)
	}()

	c.SSEvent("message", "connected")
	c.Writer.Flush()

	send := func(evt event.Event) bool {
		data, err := json.Marshal(evt.Payload)
		if err != nil {
			logging.Warn().Err(err).Msg("SSE JSON Marshal error")
			return true
		}
		c.SSEvent(string(evt.Type), string(data))
		c.Writer.Flush()
		return evt.Type != event.EventImportComplete
	}

	// no forwarder: the job was not started over HTTP, or everything is published
	forwardDone := h.Done()
	if ch, ok := s.forwarded(id); ok {
		forwardDone = ch
	}

	for {
		select {
		case evt := <-clientChan:
			if !send(evt) {
				return
			}
		case <-forwardDone:
			// everything was published before the channel closed
			for {
				select {
				case evt := <-clientChan:
					if !send(evt) {
						return
					}
				default:
					send(event.Event{Type: event.EventImportComplete, Payload: CompleteMessage{JobID: id, Snapshot: h.Snapshot()}})
					return
				}
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}
