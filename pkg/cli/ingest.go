package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/argus/pkg/cli/config"
	"github.com/secmon-lab/argus/pkg/domain/model"
	"github.com/secmon-lab/argus/pkg/domain/model/auth"
	"github.com/secmon-lab/argus/pkg/usecase"
	"github.com/secmon-lab/argus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdIngest() *cli.Command {
	var (
		repoCfg       config.Repository
		title         string
		content       string
		contentFile   string
		source        string
		externalID    string
		url           string
		publishedDate string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "title",
			Usage:       "Document title",
			Required:    true,
			Destination: &title,
		},
		&cli.StringFlag{
			Name:        "content",
			Usage:       "Document body text",
			Destination: &content,
		},
		&cli.StringFlag{
			Name:        "content-file",
			Usage:       "Read the document body from a file",
			Destination: &contentFile,
		},
		&cli.StringFlag{
			Name:        "source",
			Usage:       "Source feed name",
			Required:    true,
			Destination: &source,
		},
		&cli.StringFlag{
			Name:        "external-id",
			Usage:       "Identifier of the document within its source",
			Required:    true,
			Destination: &externalID,
		},
		&cli.StringFlag{
			Name:        "url",
			Usage:       "Link to the original document",
			Destination: &url,
		},
		&cli.StringFlag{
			Name:        "published-date",
			Usage:       "Publication date (YYYY-MM-DD)",
			Destination: &publishedDate,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Store a document for the pipeline to process",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if contentFile != "" {
				// #nosec G304 - path is provided by the operator
				data, err := os.ReadFile(contentFile)
				if err != nil {
					return goerr.Wrap(err, "failed to read content file", goerr.V("path", contentFile))
				}
				content = string(data)
			}

			doc := &model.Document{
				Source:     source,
				ExternalID: externalID,
				URL:        url,
				Title:      title,
				RawContent: content,
			}
			if publishedDate != "" {
				d, err := time.Parse(time.DateOnly, publishedDate)
				if err != nil {
					return goerr.Wrap(err, "invalid published date", goerr.V("published_date", publishedDate))
				}
				doc.PublishedDate = &d
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo)
			created, ok, err := uc.Ingest.Ingest(ctx, auth.System(), doc)
			if err != nil {
				return err
			}

			if !ok {
				_, _ = color.New(color.FgYellow).Printf("skipped: %s/%s is already ingested\n", source, externalID)
				return nil
			}
			_, _ = color.New(color.FgGreen).Print("ingested: ")
			fmt.Println(created.ID)
			return nil
		},
	}
}
