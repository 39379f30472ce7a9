package idempotency

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"production_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// recordingWriter copies everything written to the client.
type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware guards the handlers that follow it. Requests without the
// header pass straight through.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader(HeaderKey)
		if rawKey == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		tenant := ""
		if id := httpkit.GetIdentity(c); id != nil && id.TenantID() != nil {
			tenant = id.TenantID().String()
		}
		fingerprint := Fingerprint(c.Request.Method, c.FullPath(), tenant, body)

		resp, replayed, err := g.Execute(c.Request.Context(), rawKey, fingerprint, func(_ context.Context) (Response, error) {
			rw := &recordingWriter{ResponseWriter: c.Writer}
			c.Writer = rw
			c.Next()
			c.Writer = rw.ResponseWriter
			return Response{
				Status:      rw.Status(),
				ContentType: rw.Header().Get("Content-Type"),
				Body:        rw.body.Bytes(),
			}, nil
		})
		if err != nil {
			httpkit.HandleError(c, err)
			c.Abort()
			return
		}
		if replayed {
			c.Header(HeaderReplayed, "true")
			c.Data(resp.Status, resp.ContentType, resp.Body)
			c.Abort()
		}
	}
}
