package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/rfpagent/internal/extract"
	"github.com/dgallion1/rfpagent/internal/loader"
	"github.com/dgallion1/rfpagent/internal/store"
)

type uploadRequest struct {
	FileName   string   `json:"file_name"`
	EmployeeID *flexInt `json:"employee_id"`
}

// uploadedRFP is the structure plus the records it belongs to.
type uploadedRFP struct {
	*extract.StructuredRFP
	CompanyID  int64  `json:"company_id"`
	EmployeeID *int64 `json:"employee_id"`
	RFPID      int64  `json:"rfp_id"`
}

func (s *Server) handleUploadRFP(w http.ResponseWriter, r *http.Request) {
	req, err := parseUploadRequest(w, r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.FileName == "" {
		jsonError(w, "file_name is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	rfp, err := s.store.FindRFPByFilename(ctx, req.FileName)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "RFP not found for provided file_name", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("rfp lookup failed", "file_name", req.FileName, "error", err)
		jsonError(w, "failed to load rfp", http.StatusInternalServerError)
		return
	}
	if rfp.FileURL == "" {
		jsonError(w, "No file_url available for this RFP", http.StatusBadRequest)
		return
	}

	log := s.log.With("rfp_id", rfp.ID, "company_id", rfp.CompanyID)
	s.setStatus(r, rfp.ID, store.StatusProcessing)

	file, err := s.fetcher.Download(ctx, rfp.FileURL, rfp.Filename)
	if err != nil {
		log.Warn("download failed", "error", err)
		s.setStatus(r, rfp.ID, store.StatusFailed)
		jsonError(w, "Failed to download file from URL", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := file.Remove(); err != nil {
			log.Warn("failed to remove temp file", "path", file.Path, "error", err)
		}
	}()

	structured, err := s.extractor.Extract(ctx, file.Path)
	if err != nil {
		s.setStatus(r, rfp.ID, store.StatusFailed)
		var parseErr *loader.DocumentParseError
		switch {
		case errors.Is(err, loader.ErrUnsupportedFormat):
			jsonError(w, "Unsupported file format. Only PDF, DOCX and XLSX are supported.", http.StatusUnprocessableEntity)
		case errors.As(err, &parseErr):
			log.Error("document parse failed", "error", err)
			jsonError(w, "Failed to process document: "+parseErr.Err.Error(), http.StatusInternalServerError)
		default:
			log.Error("extraction failed", "error", err)
			jsonError(w, "Failed to extract RFP structure: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	out := uploadedRFP{
		StructuredRFP: structured,
		CompanyID:     rfp.CompanyID,
		RFPID:         rfp.ID,
	}
	if req.EmployeeID != nil {
		id := int64(*req.EmployeeID)
		out.EmployeeID = &id
	}

	data, err := json.Marshal(out)
	if err != nil {
		log.Error("encode structure failed", "error", err)
		jsonError(w, "failed to encode structure", http.StatusInternalServerError)
		return
	}
	if err := s.store.SaveStructure(ctx, rfp.ID, data); err != nil {
		s.setStatus(r, rfp.ID, store.StatusFailed)
		log.Error("save structure failed", "error", err)
		jsonError(w, "failed to save structure", http.StatusInternalServerError)
		return
	}

	log.Info("rfp processed", "sections", len(structured.Sections))
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "RFP uploaded and processed successfully",
		"structured_data": json.RawMessage(data),
	})
}

// parseUploadRequest accepts a JSON body or form fields.
func parseUploadRequest(w http.ResponseWriter, r *http.Request) (uploadRequest, error) {
	var req uploadRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(w, r, &req); err != nil {
			return req, errors.New("invalid request body: " + err.Error())
		}
		req.FileName = strings.TrimSpace(req.FileName)
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxJSONBody); err != nil {
			return req, errors.New("invalid form: " + err.Error())
		}
	} else if err := r.ParseForm(); err != nil {
		return req, errors.New("invalid form: " + err.Error())
	}

	req.FileName = strings.TrimSpace(r.FormValue("file_name"))
	if v := strings.TrimSpace(r.FormValue("employee_id")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, errors.New("employee_id must be an integer")
		}
		id := flexInt(n)
		req.EmployeeID = &id
	}
	return req, nil
}

// setStatus records a status change; failures are logged only.
func (s *Server) setStatus(r *http.Request, id int64, status string) {
	if err := s.store.SetStatus(r.Context(), id, status); err != nil {
		s.log.Warn("status update failed", "rfp_id", id, "status", status, "error", err)
	}
}
