package server

import (
	"bytes"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"

	"github.com/dingocoin/wdingocoin-bridge/common"
	"github.com/dingocoin/wdingocoin-bridge/envelope"
)

const bodyKey = "requestBody"

// StatusOf maps an error kind to the HTTP status reported to the caller.
func StatusOf(err error) int {
	kind, ok := common.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case common.KindValidation:
		return http.StatusBadRequest
	case common.KindAuthentication:
		return http.StatusUnauthorized
	case common.KindConsensus, common.KindStateConflict:
		return http.StatusConflict
	case common.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, &envelope.SignedMessage{Error: msg})
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, common.NewValidationError("malformed request: %v", err))
		return false
	}
	return true
}

func handle[Req any, Resp any](fn func(*Req) (Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := new(Req)
		if !bind(c, req) {
			return
		}
		resp, err := fn(req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func handleEmpty[Resp any](fn func() (Resp, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := fn()
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// captureBody keeps a copy of the request body for the error log.
func captureBody(c *gin.Context) {
	if c.Request.Body != nil {
		body, err := io.ReadAll(c.Request.Body)
		if err == nil {
			c.Set(bodyKey, body)
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	c.Next()
}

func requestBody(c *gin.Context) []byte {
	if v, ok := c.Get(bodyKey); ok {
		return v.([]byte)
	}
	return nil
}

func (h *HttpServer) recordErrors(c *gin.Context) {
	c.Next()

	last := c.Errors.Last()
	if last == nil {
		return
	}
	logger.WithFields(logger.Fields{
		"path":   c.FullPath(),
		"status": c.Writer.Status(),
	}).WithError(last.Err).Warn("request failed")
	if h.errLog != nil {
		if err := h.errLog.Record(c.Request.URL.Path, requestBody(c), last.Err, nil); err != nil {
			logger.WithError(err).Error("failed to write error log")
		}
	}
}

func (h *HttpServer) recovered(c *gin.Context, cause any) {
	stack := debug.Stack()
	logger.WithField("path", c.Request.URL.Path).Errorf("panic serving request: %v", cause)
	if h.errLog != nil {
		if err := h.errLog.Record(c.Request.URL.Path, requestBody(c), cause, stack); err != nil {
			logger.WithError(err).Error("failed to write error log")
		}
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, &envelope.SignedMessage{Error: "Internal server error"})
}
