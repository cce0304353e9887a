// Package httpx holds the JSON envelope and request decoding shared by the HTTP handlers.
package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"tenancy-control-plane/backend/internal/platform/apperr"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the error part of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WriteJSON writes data in the envelope with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, Response{Success: status >= 200 && status < 300, Data: data})
}

// WriteOK writes a 200 response.
func WriteOK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a 201 response.
func WriteCreated(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 response with no body.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps err to a status and error code. Internal causes are logged, never returned.
func WriteError(w http.ResponseWriter, err error) {
	e, ok := apperr.As(err)
	if !ok {
		log.Printf("http: unhandled error: %v", err)
		e = apperr.Internal("internal server error", err)
	}
	if e.Code == apperr.CodeInternal && e.Cause != nil {
		log.Printf("http: %s: %v", e.Message, e.Cause)
	}
	writeEnvelope(w, e.Code.HTTPStatus(), Response{
		Success: false,
		Error: &ErrorBody{
			Code:    errorCode(e.Code),
			Message: e.Message,
			Details: e.Field,
		},
	})
}

func errorCode(c apperr.Code) string {
	switch c {
	case apperr.CodeInvalidArgument:
		return "VALIDATION_ERROR"
	case apperr.CodeNotFound:
		return "NOT_FOUND"
	case apperr.CodeAlreadyExists:
		return "CONFLICT"
	case apperr.CodeUnauthenticated:
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

func writeEnvelope(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

// DecodeJSON decodes the request body into v. Fields listed in readOnly are rejected with a
// validation error naming the field; unknown fields are rejected too.
func DecodeJSON(r *http.Request, v interface{}, readOnly ...string) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return apperr.Invalid("", "failed to read request body")
	}
	if len(body) > maxBodyBytes {
		return apperr.Invalid("", "request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return apperr.Invalid("", "request body is required")
	}

	if len(readOnly) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return apperr.Invalid("", "request body must be a JSON object")
		}
		for _, f := range readOnly {
			if _, ok := fields[f]; ok {
				return apperr.Invalid(f, fmt.Sprintf("%s is read-only", f))
			}
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperr.Invalid(typeErr.Field, fmt.Sprintf("%s has the wrong type", typeErr.Field))
		}
		return apperr.Invalid("", "invalid request body: "+err.Error())
	}
	return nil
}
