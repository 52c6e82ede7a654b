package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
)

type documentRequest struct {
	Source        string  `json:"source"`
	ExternalID    string  `json:"externalId"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	RawContent    string  `json:"rawContent"`
	PublishedDate *string `json:"publishedDate"`
}

type documentResponse struct {
	ID            model.DocumentID `json:"id"`
	Source        string           `json:"source"`
	ExternalID    string           `json:"externalId"`
	URL           string           `json:"url,omitempty"`
	Title         string           `json:"title"`
	RawContent    string           `json:"rawContent"`
	PublishedDate *string          `json:"publishedDate"`
	Processed     bool             `json:"processed"`
	IngestedAt    time.Time        `json:"ingestedAt"`
}

type ingestResponse struct {
	Created  bool              `json:"created"`
	Document *documentResponse `json:"document,omitempty"`
}

func toDocumentResponse(d *model.Document) *documentResponse {
	return &documentResponse{
		ID:            d.ID,
		Source:        d.Source,
		ExternalID:    d.ExternalID,
		URL:           d.URL,
		Title:         d.Title,
		RawContent:    d.RawContent,
		PublishedDate: formatOptionalDate(d.PublishedDate),
		Processed:     d.Processed,
		IngestedAt:    d.IngestedAt,
	}
}

func (s *Server) ingestDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(r, w, err)
		return
	}
	published, err := parseOptionalDate(req.PublishedDate)
	if err != nil {
		handleError(r, w, err)
		return
	}

	doc, created, err := s.uc.Ingest.Ingest(r.Context(), auth.PrincipalFrom(r.Context()), &model.Document{
		Source:        req.Source,
		ExternalID:    req.ExternalID,
		URL:           req.URL,
		Title:         req.Title,
		RawContent:    req.RawContent,
		PublishedDate: published,
	})
	if err != nil {
		handleError(r, w, err)
		return
	}

	if !created {
		writeJSON(r.Context(), w, http.StatusOK, ingestResponse{Created: false})
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, ingestResponse{Created: true, Document: toDocumentResponse(doc)})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id := model.DocumentID(chi.URLParam(r, "id"))
	doc, err := s.uc.Ingest.Get(r.Context(), auth.PrincipalFrom(r.Context()), id)
	if err != nil {
		handleError(r, w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toDocumentResponse(doc))
}
