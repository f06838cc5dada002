package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
)

var fileNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations in dir on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return validateFS(os.DirFS(dir), ".")
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	return validateFS(embedded, embeddedDir)
}

// validateFS requires well-formed, unique file names and both goose sections
// in every file, with Up before Down.
func validateFS(fsys fs.FS, dir string) error {
	names, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}
	sort.Strings(names)

	versions := make(map[string]string, len(names))
	for _, full := range names {
		base := path.Base(full)
		m := fileNameRe.FindStringSubmatch(base)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", base)
		}
		if prev, dup := versions[m[1]]; dup {
			return fmt.Errorf("version %s used by both %q and %q", m[1], prev, base)
		}
		versions[m[1]] = base

		raw, err := fs.ReadFile(fsys, full)
		if err != nil {
			return fmt.Errorf("read %q: %w", base, err)
		}
		body := string(raw)
		up := strings.Index(body, "-- +goose Up")
		down := strings.Index(body, "-- +goose Down")
		switch {
		case up < 0:
			return fmt.Errorf("migration %q has no Up section", base)
		case down < 0:
			return fmt.Errorf("migration %q has no Down section", base)
		case down < up:
			return fmt.Errorf("migration %q declares Down before Up", base)
		}
	}
	return nil
}
