package problem

import (
	"net/http"
	"strconv"
	"time"
)

const typeBase = "https://developer.mozilla.org/en-US/docs/Web/HTTP/Reference/Status/"

type InvalidParam struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Code is the short machine-readable error slug carried in the "error" field.
type Code string

const (
	CodeBadRequest           Code = "bad_request"
	CodeInvalidURL           Code = "invalid_capability_statement_url"
	CodeInvalidDocument      Code = "invalid_capability_statement"
	CodeUpstreamNotFound     Code = "capability_statement_not_found"
	CodeUpstreamUnreachable  Code = "fhir_server_unreachable"
	CodeUpstreamFailed       Code = "fhir_server_error"
	CodeUnsupportedResources Code = "unsupported_resources"
	CodeNotFound             Code = "not_found"
	CodeGenerationFailed     Code = "generation_failed"
	CodeInternal             Code = "internal_error"
)

// APIError implementeert error + Problem Details (RFC 7807), aangevuld met
// error/message/timestamp zodat clients één vorm krijgen voor elke fout.
type APIError struct {
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Status        int            `json:"status"`
	Detail        string         `json:"detail"`
	Code          Code           `json:"error"`
	Message       string         `json:"message"`
	Timestamp     time.Time      `json:"timestamp"`
	Instance      string         `json:"instance,omitempty"`
	InvalidParams []InvalidParam `json:"invalidParams,omitempty"`
}

func (e APIError) Error() string { return e.Detail }

func newError(status int, title string, code Code, detail, message string, params []InvalidParam) APIError {
	return APIError{
		Type:          typeBase + strconv.Itoa(status),
		Title:         title,
		Status:        status,
		Detail:        detail,
		Code:          code,
		Message:       message,
		Timestamp:     time.Now().UTC(),
		InvalidParams: params,
	}
}

// Constructor voor 400 Bad Request
func NewBadRequest(detail string, params ...InvalidParam) APIError {
	return newError(400, "Bad Request", CodeBadRequest, detail, detail, params)
}

// Constructor voor 404 Not Found
func NewNotFound(detail string, params ...InvalidParam) APIError {
	return newError(404, "Not Found", CodeNotFound, detail, detail, params)
}

func NewInternalServerError(detail string) APIError {
	return newError(500, "Internal Server Error", CodeInternal, detail, "Something went wrong on our side. Please try again later.", nil)
}

func (e APIError) WithStatus(status int) APIError {
	if status == e.Status {
		return e
	}
	e.Status = status
	e.Title = http.StatusText(status)
	e.Type = typeBase + strconv.Itoa(status)
	return e
}

// WithCode overrides the error slug and user-facing message.
func (e APIError) WithCode(code Code, message string) APIError {
	e.Code = code
	if message != "" {
		e.Message = message
	}
	return e
}
