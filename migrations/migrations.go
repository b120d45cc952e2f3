// Package migrations embeds the schema files, applied in name order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"

	"github.com/jmoiron/sqlx"
)

//go:embed *.sql
var files embed.FS

// Apply runs every embedded file. The files are idempotent, so applying them
// to an up to date schema is a no-op.
func Apply(ctx context.Context, db *sqlx.DB) ([]string, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("fs.Glob: %w", err)
	}

	slices.Sort(names)

	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("files.ReadFile(%s): %w", name, err)
		}

		if _, err = db.ExecContext(ctx, string(body)); err != nil {
			return nil, fmt.Errorf("apply %s: %w", name, err)
		}
	}

	return names, nil
}
