package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/harliandi/go-sizefit/internal/codec"
	"github.com/harliandi/go-sizefit/internal/search"
	"github.com/harliandi/go-sizefit/pkg/metrics"
)

// Response headers carrying the search outcome
const (
	HeaderSizeKB     = "X-Image-Size-KB"
	HeaderFitStatus  = "X-Fit-Status"
	HeaderFitMessage = "X-Fit-Message"
)

// Handler handles HTTP requests for size-targeted re-encoding
type Handler struct {
	pool          *search.Pool
	defaults      search.Range
	maxUploadMB   int
	defaultFormat string
}

// New creates a new Handler submitting work to pool
func New(pool *search.Pool, defaults search.Range, maxUploadMB int, defaultFormat string) *Handler {
	return &Handler{
		pool:          pool,
		defaults:      defaults,
		maxUploadMB:   maxUploadMB,
		defaultFormat: defaultFormat,
	}
}

// Fit handles the /fit endpoint: multipart upload field "file", optional
// min_size/max_size/format query parameters. The response body is always
// the re-encoded image; partial failure is reported through headers.
func (h *Handler) Fit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(int64(h.maxUploadMB) << 20); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			http.Error(w, "Content-Type must be multipart/form-data", http.StatusBadRequest)
		} else {
			http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
		}
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, int64(h.maxUploadMB)<<20))
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	rng, format, err := h.parseParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := h.pool.Submit(r.Context(), data, rng, format)
	if err != nil {
		h.writeError(w, err)
		return
	}
	metrics.RecordFit(res.Status.String(), format, time.Since(start).Seconds(), len(data), len(res.Bytes), res.Encodes)

	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Bytes)))
	w.Header().Set(HeaderSizeKB, strconv.Itoa(res.SizeKB))
	w.Header().Set(HeaderFitStatus, res.Status.String())
	if msg := res.Message(); msg != "" {
		w.Header().Set(HeaderFitMessage, msg)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Bytes)
}

func (h *Handler) parseParams(r *http.Request) (search.Range, string, error) {
	rng := h.defaults
	query := r.URL.Query()

	if v := query.Get("min_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rng, "", errors.New("min_size must be an integer")
		}
		rng.MinKB = n
	}
	if v := query.Get("max_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rng, "", errors.New("max_size must be an integer")
		}
		rng.MaxKB = n
	}

	format := h.defaultFormat
	if v := query.Get("format"); v != "" {
		if v != codec.FormatJPEG && v != codec.FormatWebP {
			return rng, "", errors.New("format must be jpeg or webp")
		}
		format = v
	}
	return rng, format, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrInvalidRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, search.ErrDecode):
		metrics.RecordFitError()
		http.Error(w, "Unsupported or corrupt image", http.StatusUnsupportedMediaType)
	case errors.Is(err, search.ErrPoolBusy):
		w.Header().Set("Retry-After", "1")
		http.Error(w, "Service busy, please try again", http.StatusServiceUnavailable)
	default:
		log.Printf("Fit error: %v", err)
		metrics.RecordFitError()
		http.Error(w, "Re-encoding failed", http.StatusInternalServerError)
	}
}

func contentTypeFor(format string) string {
	if format == codec.FormatWebP {
		return "image/webp"
	}
	return "image/jpeg"
}

// Health handles the /health endpoint for readiness/liveness probes
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
