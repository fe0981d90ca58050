package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/rfpagent/internal/parser"
	"github.com/dgallion1/rfpagent/internal/store"
)

type createRFPRequest struct {
	CompanyID   flexInt `json:"company_id"`
	Filename    string  `json:"filename"`
	FileURL     string  `json:"file_url"`
	ContentType string  `json:"content_type"`
}

func (s *Server) handleCreateRFP(w http.ResponseWriter, r *http.Request) {
	var req createRFPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Filename = strings.TrimSpace(req.Filename)
	if req.Filename == "" {
		jsonError(w, "filename is required", http.StatusBadRequest)
		return
	}
	if !parser.IsSupportedExtension(req.Filename) {
		jsonError(w, "unsupported file type; only PDF, DOCX and XLSX are supported", http.StatusUnprocessableEntity)
		return
	}

	rfp, err := s.store.CreateRFP(r.Context(), store.RFP{
		CompanyID:   int64(req.CompanyID),
		Filename:    req.Filename,
		FileURL:     strings.TrimSpace(req.FileURL),
		ContentType: req.ContentType,
	})
	if err != nil {
		s.log.Error("create rfp failed", "error", err)
		jsonError(w, "failed to create rfp", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, rfp)
}

func (s *Server) handleGetRFP(w http.ResponseWriter, r *http.Request) {
	id, err := rfpIDParam(r)
	if err != nil {
		jsonError(w, "invalid rfp id", http.StatusBadRequest)
		return
	}
	rfp, err := s.store.GetRFP(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "RFP not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("get rfp failed", "rfp_id", id, "error", err)
		jsonError(w, "failed to load rfp", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rfp)
}

type finalStatusRequest struct {
	RFPID *flexInt `json:"rfp_id"`
}

func (s *Server) handleFinalStatus(w http.ResponseWriter, r *http.Request) {
	var req finalStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.RFPID == nil {
		jsonError(w, "rfp_id is required", http.StatusBadRequest)
		return
	}

	rfp, err := s.store.GetRFP(r.Context(), int64(*req.RFPID))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "RFP not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("final status lookup failed", "error", err)
		jsonError(w, "failed to load rfp", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*string{
		"docx_url": rfp.DocxURL,
		"pdf_url":  rfp.PDFURL,
	})
}
