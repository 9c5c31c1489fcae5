package profile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"persona/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// Profile is the grounding context of the persona. It is read once at startup.
type Profile struct {
	Name     string
	Summary  string
	Document string
}

func New(di *do.Injector) (*Profile, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	return Load(ctx, cfg.Persona)
}

func Load(ctx context.Context, cfg config.Persona) (*Profile, error) {
	summary, err := loadFile(ctx, cfg.SummaryPath)
	if err != nil {
		return nil, oops.In("profile").With("path", cfg.SummaryPath).Wrapf(err, "failed to load summary")
	}

	document, err := loadFile(ctx, cfg.ProfilePath)
	if err != nil {
		return nil, oops.In("profile").With("path", cfg.ProfilePath).Wrapf(err, "failed to load profile document")
	}

	slog.Info("Profile loaded",
		"name", cfg.Name,
		"summary_len", len(summary),
		"document_len", len(document),
	)

	return &Profile{
		Name:     cfg.Name,
		Summary:  summary,
		Document: document,
	}, nil
}

func loadFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var docs []schema.Document

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		info, err := file.Stat()
		if err != nil {
			return "", fmt.Errorf("failed to stat file: %w", err)
		}

		loader := documentloaders.NewPDF(file, info.Size())
		docs, err = loader.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to extract pdf text: %w", err)
		}
	} else {
		loader := documentloaders.NewText(file)
		docs, err = loader.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to read text: %w", err)
		}
	}

	return joinPages(docs), nil
}

// joinPages concatenates page texts in order, skipping pages without text.
func joinPages(docs []schema.Document) string {
	pages := pie.Filter(docs, func(d schema.Document) bool {
		return d.PageContent != ""
	})

	return strings.Join(pie.Map(pages, func(d schema.Document) string {
		return d.PageContent
	}), "")
}
