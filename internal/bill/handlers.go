package bill

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// maxUploadSize bounds multipart bodies; phone photos of receipts fit comfortably
const maxUploadSize = int64(20 << 20)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// ErrorResponse is the JSON body of every API error. Fields is set when a
// bill failed validation.
type ErrorResponse struct {
	Error  string           `json:"error"`
	Fields ValidationErrors `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ErrorResponse{Error: message})
}

// writeServiceError answers with the status matching err, listing the failing fields
func writeServiceError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	errors.As(err, &resp.Fields)
	writeJSON(w, statusFor(err), resp)
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, ErrUnsupportedReceipt):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrScannerDisabled):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// FormFile reads an optional file part of a parsed multipart request. A
// missing part is not an error and yields a nil File.
func FormFile(r *http.Request, field string) (*File, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.service.ListBills(r.URL.Query().Get("email"))
	if err != nil {
		slog.Error("Error listing bills", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

// handleCreateBill expects a multipart form with a "bill" JSON field and an optional "file"
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Le fichier est trop volumineux.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	var payload Payload
	if err := json.Unmarshal([]byte(r.FormValue("bill")), &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bill payload")
		return
	}

	file, err := FormFile(r, "file")
	if err != nil {
		slog.Error("Error reading receipt", "error", err)
		writeError(w, http.StatusBadRequest, "Error reading file")
		return
	}

	bill, err := s.service.CreateBill(r.Context(), payload, file)
	if err != nil {
		slog.Error("Error creating bill", "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.service.GetBill(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), "Bill not found")
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	bill, err := s.service.UpdateBill(r.PathValue("id"), update)
	if err != nil {
		slog.Error("Error updating bill", "id", r.PathValue("id"), "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBill(r.PathValue("id")); err != nil {
		slog.Error("Error deleting bill", "id", r.PathValue("id"), "error", err)
		writeError(w, statusFor(err), "Error deleting bill")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBillFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetBillFile(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), "File not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}

func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}
	file, err := FormFile(r, "file")
	if err != nil || file == nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	suggestion, err := s.service.ScanReceipt(r.Context(), file)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", file.Name, "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}
