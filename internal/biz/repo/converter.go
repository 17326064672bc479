package repo

import "context"

// DocumentConverter converts documents into a model-ingestible form
type DocumentConverter interface {
	// ToPDF converts the file to PDF and returns the output path.
	// PDF input is returned unchanged.
	ToPDF(ctx context.Context, path string) (string, error)
}
