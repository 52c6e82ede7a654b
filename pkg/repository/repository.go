// Package repository composes store implementations into one interfaces.Repository.
package repository

import (
	"errors"

	"github.com/secmon-lab/argus/pkg/domain/interfaces"
)

type composite struct {
	interfaces.Repository
	documents interfaces.DocumentRepository
	closers   []func() error
}

// WithDocumentStore returns a Repository that serves documents from docs and every other
// store from base. closers run after base.Close.
func WithDocumentStore(base interfaces.Repository, docs interfaces.DocumentRepository, closers ...func() error) interfaces.Repository {
	return &composite{
		Repository: base,
		documents:  docs,
		closers:    closers,
	}
}

func (c *composite) Document() interfaces.DocumentRepository {
	return c.documents
}

func (c *composite) Close() error {
	errs := []error{c.Repository.Close()}
	for _, fn := range c.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
