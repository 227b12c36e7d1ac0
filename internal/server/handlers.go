package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmmcquay/sgf-renderer/internal/logging"
	"github.com/dmmcquay/sgf-renderer/internal/service"
	"github.com/dmmcquay/sgf-renderer/internal/sgf"
)

func (s *HTTPServer) handleRender(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, "render") {
		return
	}
	params, ok := s.decodeParams(w, r)
	if !ok {
		return
	}

	img, err := s.svc.Render(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Length", strconv.Itoa(len(img.PNG)))
	if img.Cached {
		h.Set("X-Cache", "hit")
	} else {
		h.Set("X-Cache", "miss")
	}
	h.Set("X-Board-Size", img.Summary.Size)
	h.Set("X-Theme", img.Theme.String())
	h.Set("X-Moves", strconv.Itoa(img.Summary.Moves))
	h.Set("X-Captures-Black", strconv.Itoa(img.Summary.Captures.ByBlack))
	h.Set("X-Captures-White", strconv.Itoa(img.Summary.Captures.ByWhite))
	if img.Summary.SizeWarning != "" {
		h.Set("X-Size-Warning", img.Summary.SizeWarning)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.PNG); err != nil {
		s.logger.WithContext(r.Context()).Debug("Failed to write image response", "error", err)
	}
}

func (s *HTTPServer) handleDescribe(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, "describe") {
		return
	}
	params, ok := s.decodeParams(w, r)
	if !ok {
		return
	}

	desc, err := s.svc.Describe(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(s.logger, w, http.StatusOK, desc)
}

// decodeParams accepts either a JSON body with sgf, theme, kifu and moves
// fields, or the raw record as the body with the options in the query string.
func (s *HTTPServer) decodeParams(w http.ResponseWriter, r *http.Request) (service.Params, bool) {
	var params service.Params
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(s.logger, w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return params, false
		}
		writeJSONError(s.logger, w, http.StatusBadRequest, "Failed to read body: "+err.Error())
		return params, false
	}

	if isJSON(r.Header.Get("Content-Type")) {
		if err := json.Unmarshal(body, &params); err != nil {
			writeJSONError(s.logger, w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
			return params, false
		}
		return params, true
	}

	notation, err := sgf.DecodeNotation(body)
	if err != nil {
		writeJSONError(s.logger, w, http.StatusBadRequest, err.Error())
		return params, false
	}
	params.Notation = notation

	q := r.URL.Query()
	params.Theme = q.Get("theme")
	if v := q.Get("kifu"); v != "" {
		kifu, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(s.logger, w, http.StatusBadRequest, "Invalid kifu value: "+v)
			return params, false
		}
		params.Kifu = kifu
	}
	if v := q.Get("moves"); v != "" {
		moves, err := strconv.Atoi(v)
		if err != nil {
			writeJSONError(s.logger, w, http.StatusBadRequest, "Invalid moves value: "+v)
			return params, false
		}
		params.MoveLimit = &moves
	}
	return params, true
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// allow applies the rate limiter keyed by client address and writes a 429
// when the request is rejected.
func (s *HTTPServer) allow(w http.ResponseWriter, r *http.Request, tool string) bool {
	if s.limiter == nil {
		return true
	}
	ok, err := s.limiter.Allow(clientIP(r), tool)
	if s.prometheus != nil {
		s.prometheus.RecordRateLimit(metricsClient, tool, !ok)
	}
	if ok {
		return true
	}

	wait := s.limiter.RetryAfter(tool)
	w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(wait)))
	writeJSONError(s.logger, w, http.StatusTooManyRequests, err.Error())
	return false
}

// metricsClient labels HTTP rate limit metrics. Addresses stay out of the
// label set since forwarded headers let callers pick them.
const metricsClient = "http"

func retrySeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// clientIP strips the port from RemoteAddr, which RealIP has already
// replaced with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if service.IsClientError(err) {
		writeJSONError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.WithContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
	writeJSONError(s.logger, w, http.StatusInternalServerError, err.Error())
}

func writeJSON(log logging.ContextLogger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("writeJSON encode error: %v", err)
	}
}

func writeJSONError(log logging.ContextLogger, w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
	log.Debug("writeJSONError: %s", msg)
}
