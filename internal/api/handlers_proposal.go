package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/rfpagent/internal/fetch"
	"github.com/dgallion1/rfpagent/internal/llm"
	"github.com/dgallion1/rfpagent/internal/loader"
	"github.com/dgallion1/rfpagent/internal/proposal"
	"github.com/dgallion1/rfpagent/internal/store"
)

// proposalDocument returns the URL of the RFP's generated proposal, PDF
// first. It writes the error response and returns "" when there is none.
func (s *Server) proposalDocument(w http.ResponseWriter, r *http.Request) string {
	id, err := rfpIDParam(r)
	if err != nil {
		jsonError(w, "invalid rfp id", http.StatusBadRequest)
		return ""
	}
	rfp, err := s.store.GetRFP(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Error("get rfp failed", "rfp_id", id, "error", err)
		jsonError(w, "failed to load rfp", http.StatusInternalServerError)
		return ""
	}
	switch {
	case rfp == nil:
	case rfp.PDFURL != nil && *rfp.PDFURL != "":
		return *rfp.PDFURL
	case rfp.DocxURL != nil && *rfp.DocxURL != "":
		return *rfp.DocxURL
	}
	jsonError(w, "RFP or file not found.", http.StatusNotFound)
	return ""
}

// writeFileTextError maps document read failures to responses.
func (s *Server) writeFileTextError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fetch.ErrDownload):
		jsonError(w, "Failed to extract file text: "+err.Error(), http.StatusBadGateway)
	case errors.Is(err, loader.ErrUnsupportedFormat):
		jsonError(w, "Failed to extract file text: unsupported file format", http.StatusUnprocessableEntity)
	default:
		s.log.Error("file text extraction failed", "error", err)
		jsonError(w, "Failed to extract file text: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleExtractFileText(w http.ResponseWriter, r *http.Request) {
	fileURL := s.proposalDocument(w, r)
	if fileURL == "" {
		return
	}
	text, err := s.proposals.FileText(r.Context(), fileURL)
	if err != nil {
		s.writeFileTextError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

type customEditRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleCustomPromptEdit(w http.ResponseWriter, r *http.Request) {
	var req customEditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		jsonError(w, "Prompt is required.", http.StatusBadRequest)
		return
	}
	fileURL := s.proposalDocument(w, r)
	if fileURL == "" {
		return
	}

	result, err := s.proposals.CustomEdit(r.Context(), fileURL, req.Prompt)
	if err != nil {
		s.writeFileTextError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

type finalProposalRequest struct {
	Proposal string `json:"proposal"`
}

func (s *Server) handleFinalProposal(w http.ResponseWriter, r *http.Request) {
	id, err := rfpIDParam(r)
	if err != nil {
		jsonError(w, "invalid rfp id", http.StatusBadRequest)
		return
	}
	var req finalProposalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Proposal) == "" {
		jsonError(w, "Proposal text is required.", http.StatusBadRequest)
		return
	}
	if _, err := s.store.GetRFP(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "RFP not found.", http.StatusNotFound)
			return
		}
		s.log.Error("get rfp failed", "rfp_id", id, "error", err)
		jsonError(w, "failed to load rfp", http.StatusInternalServerError)
		return
	}

	refined, err := s.proposals.Refine(r.Context(), req.Proposal)
	if errors.Is(err, llm.ErrNoModel) {
		writeJSON(w, http.StatusOK, map[string]string{"result": proposal.NotConfiguredMessage})
		return
	}
	if err != nil {
		s.log.Error("final proposal generation failed", "rfp_id", id, "error", err)
		jsonError(w, "LLM generation failed; check server logs.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"result": refined.Markdown,
		"html":   refined.HTML,
	})
}

const compileNotConfigured = "LLM not configured. Set GEMINI_MODEL to a supported model to enable proposal generation."

func (s *Server) handleCompileProposal(w http.ResponseWriter, r *http.Request) {
	var rfpData map[string]json.RawMessage
	if err := decodeJSON(w, r, &rfpData); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	raw, _ := json.Marshal(rfpData)

	md, err := s.proposals.Compile(r.Context(), raw)
	if errors.Is(err, llm.ErrNoModel) {
		writeJSON(w, http.StatusOK, map[string]any{
			"prompt":   compileNotConfigured,
			"rfp_data": rfpData,
		})
		return
	}
	if err != nil {
		s.log.Error("proposal compilation failed", "error", err)
		jsonError(w, "LLM generation failed; check server logs.", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": md})
}
