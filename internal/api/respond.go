package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/soaringjerry/quizly/internal/services"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error            string       `json:"error"`
	Code             string       `json:"code"`
	Reason           string       `json:"reason,omitempty"`
	MissingQuestions []string     `json:"missingQuestions,omitempty"`
	Details          []fieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps service errors onto status codes. Anything else is logged
// here and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	se, ok := services.AsServiceError(err)
	if !ok {
		log.Printf("http: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error", Code: "internal"})
		return
	}
	body := errorBody{Error: se.Message, Code: string(se.Code), Reason: se.Reason}
	if se.Reason == services.ReasonMissingRequired {
		body.MissingQuestions = se.Detail
	} else {
		for _, d := range se.Detail {
			body.Details = append(body.Details, fieldError{Field: d, Message: se.Message})
		}
	}
	writeJSON(w, statusFor(se.Code), body)
}

func writeInvalidPayload(w http.ResponseWriter, msg string, details []fieldError) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error:   msg,
		Code:    string(services.ErrorInvalid),
		Reason:  services.ReasonInvalidPayload,
		Details: details,
	})
}

// decodeJSON reads a size-limited JSON object body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			writeInvalidPayload(w, "request body too large", nil)
		case errors.Is(err, io.EOF):
			writeInvalidPayload(w, "request body required", nil)
		default:
			writeInvalidPayload(w, "invalid JSON body", nil)
		}
		return false
	}
	return true
}
