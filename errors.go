package main

import (
	stderrors "errors"
	"github.com/CodedInternet/gowalker/onboard/errors"
	"github.com/go-chi/render"
	"net/http"
)

// ErrResponse renders any failure as JSON with a matching status code.
type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	Code       int    `json:"code,omitempty"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func newErrResponse(err error, status int) *ErrResponse {
	e := &ErrResponse{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     http.StatusText(status),
	}
	if err != nil {
		e.ErrorText = err.Error()
	}
	return e
}

func ErrInvalidRequest(err error) render.Renderer {
	return newErrResponse(err, http.StatusBadRequest)
}

func ErrRender(err error) render.Renderer {
	return newErrResponse(err, http.StatusUnprocessableEntity)
}

func ErrUnauthorized(err error) render.Renderer {
	return newErrResponse(err, http.StatusUnauthorized)
}

func ErrPermissionDenied(err error) render.Renderer {
	return newErrResponse(err, http.StatusForbidden)
}

var ErrNotFound = newErrResponse(stderrors.New("Resource not found"), http.StatusNotFound)

// Maps robot errors onto HTTP statuses, keeping the protocol code.
func ErrCommand(err error) render.Renderer {
	code := errors.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeMalformed, errors.CodeInvalidValue:
		status = http.StatusBadRequest
	case errors.CodeQueueFull, errors.CodeBusy:
		status = http.StatusServiceUnavailable
	case errors.CodeUnsupported:
		status = http.StatusNotImplemented
	case errors.CodeNotCalibrating:
		status = http.StatusConflict
	}
	e := newErrResponse(err, status)
	e.Code = code
	return e
}
