package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// DocumentID identifies a raw ingested document
type DocumentID string

// NewDocumentID generates a new DocumentID
func NewDocumentID() DocumentID {
	return DocumentID(newShortID("doc"))
}

// Document is a raw document produced by an ingestion source.
// Processed moves from false to true once, after an insight was recorded for it.
type Document struct {
	ID            DocumentID
	Source        string
	ExternalID    string // unique per Source
	URL           string
	Title         string
	RawContent    string
	PublishedDate *time.Time
	Processed     bool
	IngestedAt    time.Time
}

// Validate checks the fields required at ingestion
func (d *Document) Validate() error {
	if d.Source == "" {
		return goerr.New("document source is required")
	}
	if d.ExternalID == "" {
		return goerr.New("document external ID is required", goerr.V("source", d.Source))
	}
	if d.Title == "" {
		return goerr.New("document title is required", goerr.V("source", d.Source), goerr.V("external_id", d.ExternalID))
	}
	return nil
}

// FullText is the text handed to the classifier: title, newline, raw content
func (d *Document) FullText() string {
	return d.Title + "\n" + d.RawContent
}
