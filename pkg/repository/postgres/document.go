package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/domain/interfaces"
	"github.com/secmon-lab/argus/pkg/domain/model"
)

// DocumentRepository implements interfaces.DocumentRepository on the documents table
type DocumentRepository struct {
	db *sql.DB
}

var _ interfaces.DocumentRepository = &DocumentRepository{}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, source, external_id, url, title, raw_content, published_date, processed, ingested_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d         model.Document
		id        string
		published sql.NullTime
	)
	if err := row.Scan(&id, &d.Source, &d.ExternalID, &d.URL, &d.Title, &d.RawContent, &published, &d.Processed, &d.IngestedAt); err != nil {
		return nil, err
	}
	d.ID = model.DocumentID(id)
	if published.Valid {
		t := published.Time.UTC()
		d.PublishedDate = &t
	}
	d.IngestedAt = d.IngestedAt.UTC()
	return &d, nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	created := *doc
	if created.ID == "" {
		created.ID = model.NewDocumentID()
	}
	if created.IngestedAt.IsZero() {
		created.IngestedAt = time.Now().UTC()
	}

	var published sql.NullTime
	if created.PublishedDate != nil {
		published = sql.NullTime{Time: *created.PublishedDate, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source, external_id) DO NOTHING`,
		string(created.ID), created.Source, created.ExternalID, created.URL, created.Title,
		created.RawContent, published, created.Processed, created.IngestedAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert document", goerr.V("id", created.ID))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read affected rows", goerr.V("id", created.ID))
	}
	if n == 0 {
		return nil, goerr.Wrap(ErrAlreadyExists, "document already ingested",
			goerr.V("source", created.Source),
			goerr.V("external_id", created.ExternalID))
	}

	return &created, nil
}

func (r *DocumentRepository) Get(ctx context.Context, id model.DocumentID) (*model.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, string(id))
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "document not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("id", id))
	}
	return doc, nil
}

func (r *DocumentRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE processed = FALSE ORDER BY ingested_at ASC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query unprocessed documents")
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan document")
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate documents")
	}
	return docs, nil
}

func (r *DocumentRepository) MarkProcessed(ctx context.Context, id model.DocumentID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE documents SET processed = TRUE WHERE id = $1`, string(id))
	if err != nil {
		return goerr.Wrap(err, "failed to mark document processed", goerr.V("id", id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read affected rows", goerr.V("id", id))
	}
	if n == 0 {
		return goerr.Wrap(ErrNotFound, "document not found", goerr.V("id", id))
	}
	return nil
}
