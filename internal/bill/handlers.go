package bill

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/zombor/billscan/internal/pipeline"
	"github.com/zombor/billscan/internal/preprocess"
)

type successResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
	ID     string `json:"id,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, errorResponse{Status: "error", Message: message})
}

// uploadStatus maps a processing error to a response code
func uploadStatus(err error) int {
	var nerr *preprocess.NormalizationError
	if errors.As(err, &nerr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// handleUpload accepts a bill in the multipart field "file" and returns the extracted bill
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.logger.Error("error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
			return
		}
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		s.logger.Error("error getting file from form", "error", err)
		msg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			msg = "No file was selected. Please choose a file to upload."
		}
		writeError(w, msg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		s.logger.Error("error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	record, err := s.service.ProcessBill(r.Context(), header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		code := uploadStatus(err)
		s.logger.Error("error processing bill", "filename", header.Filename, "status", code, "error", err)
		msg := err.Error()
		var perr *pipeline.Error
		if errors.As(err, &perr) {
			msg = "Internal error while processing the bill"
		}
		writeError(w, msg, code)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: record.Bill, ID: record.ID})
}

// handleListBills returns the bill history
func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListBills()
	if err != nil {
		s.logger.Error("error listing bills", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: records})
}

// handleGetBill returns a single bill record
func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetBill(r.PathValue("id"))
	if err != nil {
		s.notFoundOrError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: record, ID: record.ID})
}

// handleGetBillFile returns the uploaded file
func (s *Server) handleGetBillFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetBillFile(r.PathValue("id"))
	if err != nil {
		s.notFoundOrError(w, err)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// handleGetBillText returns the recognized text as plain text
func (s *Server) handleGetBillText(w http.ResponseWriter, r *http.Request) {
	text, err := s.service.GetBillText(r.PathValue("id"))
	if err != nil {
		s.notFoundOrError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

// handleDeleteBill deletes a bill and its file
func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBill(r.PathValue("id")); err != nil {
		s.notFoundOrError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) notFoundOrError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, "Bill not found", http.StatusNotFound)
		return
	}
	s.logger.Error("error handling bill request", "error", err)
	writeError(w, "Internal server error", http.StatusInternalServerError)
}
