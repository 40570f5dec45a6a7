package api

import (
	"github.com/gin-gonic/gin"
)

// headersMiddleware sets the server-sent-events response headers.
func headersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("Transfer-Encoding", "chunked")
		c.Next()
	}
}

// eventStreamHandler attaches a live connection to the client's delivery
// channel and forwards routed events until the client goes away.
func (s *Server) eventStreamHandler(c *gin.Context) {
	clientID := c.Param("client_id")

	ch := s.router.Attach(clientID)
	defer s.router.Detach(clientID, ch)

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case notification, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(notification.Event, notification.Payload)
			c.Writer.Flush()
		}
	}
}
