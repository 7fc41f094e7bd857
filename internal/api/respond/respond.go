// Package respond writes the read API's JSON bodies, cache headers and
// error envelopes.
package respond

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/albapepper/courtside-data/internal/cache"
)

// Error codes carried in ErrorResponse.
const (
	CodeInvalidID   = "INVALID_ID"
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL_ERROR"
)

// ErrorResponse is the envelope of every API error.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Payload is an encoded list response with its cache entry metadata.
type Payload struct {
	Data []byte
	ETag string
	TTL  time.Duration
	Hit  bool
}

// Cached answers 304 when the request's If-None-Match covers p.ETag and
// otherwise writes p.Data with ETag, X-Cache and Cache-Control headers.
func Cached(w http.ResponseWriter, r *http.Request, p Payload) {
	h := w.Header()
	h.Set("ETag", p.ETag)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), p.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	maxAge := int(p.TTL.Seconds())
	h.Set("Content-Type", "application/json")
	h.Set("Vary", "Accept-Encoding")
	h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", maxAge, maxAge/2))
	if p.Hit {
		h.Set("X-Cache", "HIT")
	} else {
		h.Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.Data)
}

// Object writes v uncached. Health and meta endpoints use it.
func Object(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// InvalidID rejects a path parameter that is not a UUID.
func InvalidID(w http.ResponseWriter, param, raw string) {
	writeError(w, http.StatusBadRequest, ErrorBody{
		Code:    CodeInvalidID,
		Message: param + " must be a UUID",
		Detail:  raw,
	})
}

// RateLimited answers 429 with Retry-After set to the limiter window.
func RateLimited(w http.ResponseWriter, window time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
	writeError(w, http.StatusTooManyRequests, ErrorBody{Code: CodeRateLimited, Message: "Too many requests"})
}

// Internal answers 500. The cause is logged by the caller, never sent.
func Internal(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Message: message})
}

func writeError(w http.ResponseWriter, status int, body ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: body})
}
