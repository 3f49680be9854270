package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/header-mapper/internal/ingest"
	"github.com/sells-group/header-mapper/internal/mapping"
	"github.com/sells-group/header-mapper/internal/report"
)

var errBadHeaders = eris.New("headers must be a non-empty array of strings")

type processHeadersRequest struct {
	Headers []string `json:"headers"`
}

func (s *Server) handleProcessHeaders(w http.ResponseWriter, r *http.Request) {
	var req processHeadersRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errBadHeaders)
		return
	}
	if len(req.Headers) == 0 {
		writeError(w, http.StatusBadRequest, errBadHeaders)
		return
	}

	result, err := s.mapper.Map(r.Context(), req.Headers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type uploadResponse struct {
	Headers  []string      `json:"headers"`
	RowCount int           `json:"rowCount"`
	Report   report.Report `json:"report"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, eris.Errorf("upload exceeds %d bytes", s.opts.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, eris.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, eris.New("multipart field \"file\" is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "read upload"))
		return
	}

	format, _ := ingest.DetectFormat(header.Filename)
	table, err := ingest.Ingest(data, header.Filename)
	if s.opts.Ingest != nil {
		rows := 0
		if table != nil {
			rows = len(table.Rows)
		}
		s.opts.Ingest.ObserveIngest(string(format), rows, err)
	}
	if err != nil {
		zap.L().Info("upload rejected", zap.String("file", header.Filename), zap.Error(err))
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, _, err := s.mapper.MapTable(r.Context(), table)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Headers:  table.Headers,
		RowCount: len(table.Rows),
		Report:   report.Build(table, result),
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := zap.L().With(zap.String("path", r.URL.Path), zap.String("outcome", mapping.Outcome(err)))
	if errors.Is(err, mapping.ErrCanceled) {
		log.Info("client went away before mapping completed")
	} else if status >= http.StatusInternalServerError {
		log.Error("mapping failed", zap.Error(err))
	}
	writeError(w, status, err)
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, ingest.ErrEmptyFile),
		errors.Is(err, mapping.ErrNoHeaders):
		return http.StatusBadRequest
	case errors.Is(err, mapping.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
