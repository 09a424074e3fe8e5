package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/logger"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Recovery recovers from panics and turns them into a 500 response. The
// stack trace is logged, never returned.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.WithContext(c.Request.Context()).Errorw("panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)
				appErr := NewInternal(fmt.Errorf("panic: %v", err)).
					WithDetail("request_id", c.GetString("request_id"))
				_ = c.Error(appErr)
				c.Abort()
				if !c.Writer.Written() {
					render(c, log, appErr)
				}
			}
		}()
		c.Next()
	}
}

// Trace extracts or generates request and trace ids.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Set("trace_id", traceID)
		c.Set("request_id", requestID)

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

// Logger logs every request with its status and latency.
func Logger(log *logger.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log.WithContext(c.Request.Context()).Infow("http request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"error", c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}

// ErrorHandler renders the last handler error as a JSON body. Unknown errors
// become a generic 500.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	log = orNop(log)
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		render(c, log, c.Errors.Last().Err)
	}
}

func render(c *gin.Context, log *logger.Logger, err error) {
	reqLog := log.WithContext(c.Request.Context())

	if appErr, ok := AsAppError(err); ok {
		if appErr.Err != nil {
			reqLog.Errorw("request error", "code", appErr.Code, "cause", appErr.Err)
		}
		c.JSON(appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
		return
	}

	reqLog.Errorw("unhandled error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    CodeInternal,
		"message": "Internal server error",
		"details": map[string]any{"request_id": c.GetString("request_id")},
	})
}

func orNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}

// CORS allows credentialed requests from the listed origins and answers
// preflight requests.
func CORS(origins []string) gin.HandlerFunc {
	allowed := slices.Clone(origins)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !slices.Contains(allowed, origin) {
			c.Next()
			return
		}
		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")
		header.Add("Vary", "Origin")

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		header.Set("Access-Control-Allow-Methods", "GET, HEAD, POST, OPTIONS")
		requested := c.GetHeader("Access-Control-Request-Headers")
		if requested == "" {
			requested = strings.Join([]string{"Content-Type", HeaderRequestID, HeaderTraceID}, ", ")
		}
		header.Set("Access-Control-Allow-Headers", requested)
		header.Set("Access-Control-Max-Age", "600")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
