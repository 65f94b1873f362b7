package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/katikolakarthik/manvi/internal/apperr"
)

const (
	HeaderRequestID = "X-Request-ID"
	ctxKeyRequestID = "request_id"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = newRequestID()
		}
		c.Set(ctxKeyRequestID, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

func newRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "rid_fallback"
	}
	return hex.EncodeToString(b)
}

// Logger writes one structured line per request.
func Logger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("request_id", GetRequestID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		}
		if a := currentActor(c); a != nil {
			attrs = append(attrs, slog.String("user", a.ID))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}
		l.LogAttrs(c.Request.Context(), level, "http_request", attrs...)
	}
}

func Recovery(l *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l.LogAttrs(c.Request.Context(), slog.LevelError, "panic_recovered",
			slog.String("request_id", GetRequestID(c)),
			slog.Any("panic", recovered),
			slog.String("stack", string(debug.Stack())),
		)
		fail(c, apperr.InternalErr("", fmt.Errorf("panic: %v", recovered)))
		renderError(c, l)
	})
}

// fail records err for ErrorHandler and stops the chain.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler renders the last error attached to the context. Handlers
// never write error bodies themselves.
func ErrorHandler(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		renderError(c, l)
	}
}

func renderError(c *gin.Context, l *slog.Logger) {
	if c.Writer.Written() || len(c.Errors) == 0 {
		return
	}

	err := c.Errors.Last().Err
	status := apperr.HTTPStatus(err)
	rid := GetRequestID(c)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	l.LogAttrs(c.Request.Context(), level, "request_failed",
		slog.String("request_id", rid),
		slog.Int("status", status),
		slog.String("kind", string(apperr.KindOf(err))),
		slog.Any("err", err),
	)

	c.AbortWithStatusJSON(status, gin.H{
		"success":    false,
		"error":      apperr.PublicMessage(err),
		"request_id": rid,
	})
}
