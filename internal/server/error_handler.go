// file: internal/server/error_handler.go
// version: 3.0.0
// guid: 5d6e7f8a-9b0c-1d2e-3f4a-5b6c7d8e9f0a

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jdfalk/playlist-importer/internal/config"
	"github.com/jdfalk/playlist-importer/internal/importer"
	"github.com/jdfalk/playlist-importer/internal/operations"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Status int      `json:"status"`
	Fields []string `json:"fields,omitempty"`
}

type errorClass struct {
	target error
	status int
	code   string
}

// errorClasses maps domain errors onto HTTP statuses. The first match wins.
var errorClasses = []errorClass{
	{operations.ErrQueueFull, http.StatusServiceUnavailable, "QUEUE_FULL"},
	{operations.ErrOperationNotFound, http.StatusNotFound, "NOT_FOUND"},
	{importer.ErrImportRunning, http.StatusConflict, "IMPORT_RUNNING"},
	{config.ErrUnknownSetting, http.StatusNotFound, "UNKNOWN_SETTING"},
	{config.ErrInvalidSettingValue, http.StatusBadRequest, "INVALID_SETTING"},
}

func classify(err error) (int, string) {
	for _, class := range errorClasses {
		if errors.Is(err, class.target) {
			return class.status, class.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// fail answers with the status that err classifies to.
func (s *Server) fail(c *gin.Context, err error) {
	status, code := classify(err)
	s.abort(c, ErrorResponse{Error: err.Error(), Code: code, Status: status})
}

func (s *Server) abort(c *gin.Context, resp ErrorResponse) {
	if resp.Status >= http.StatusInternalServerError {
		s.logger.Errorf("%s %s %d: %s (from %s)", c.Request.Method, c.Request.URL.Path, resp.Status, resp.Error, c.ClientIP())
	} else {
		s.logger.Warnf("%s %s %d: %s (from %s)", c.Request.Method, c.Request.URL.Path, resp.Status, resp.Error, c.ClientIP())
	}
	c.AbortWithStatusJSON(resp.Status, resp)
}

func (s *Server) notFound(c *gin.Context, kind, id string) {
	s.abort(c, ErrorResponse{
		Error:  fmt.Sprintf("%s not found: %s", kind, id),
		Code:   "NOT_FOUND",
		Status: http.StatusNotFound,
	})
}

func (s *Server) invalidField(c *gin.Context, field string, err error) {
	s.abort(c, ErrorResponse{
		Error:  fmt.Sprintf("invalid %s: %v", field, err),
		Code:   "VALIDATION_ERROR",
		Status: http.StatusBadRequest,
		Fields: []string{field},
	})
}

// badBody reports a request body that failed to decode or validate.
func (s *Server) badBody(c *gin.Context, err error) {
	resp := ErrorResponse{
		Error:  "invalid request body: " + err.Error(),
		Code:   "BAD_REQUEST",
		Status: http.StatusBadRequest,
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Code = "VALIDATION_ERROR"
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, strings.ToLower(fe.Field()))
			msgs = append(msgs, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
		resp.Error = "invalid request body: " + strings.Join(msgs, ", ")
	}
	s.abort(c, resp)
}

// queryInt reads an integer query parameter, falling back to def when it
// is missing, malformed or outside [min, max].
func queryInt(c *gin.Context, key string, def, min, max int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < min || v > max {
		return def
	}
	return v
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
