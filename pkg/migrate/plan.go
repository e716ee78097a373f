package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Plan lists the movable files below a data directory
type Plan struct {
	Root  string
	Files []string // Slash-separated, relative to Root, in walk order
	Bytes int64
}

// Plan enumerates the files below root whose names end with a movable
// extension. root must be an existing directory.
func (m *Migrator) Plan(root string) (*Plan, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory is not a directory: %s", root)
	}

	pattern := extensionPattern(m.engine.MovableExtensions())
	if pattern == "" {
		return nil, fmt.Errorf("no movable extensions configured")
	}

	plan := &Plan{Root: root}
	seen := make(map[string]bool)

	err = doublestar.GlobWalk(os.DirFS(root), pattern, func(rel string, d fs.DirEntry) error {
		if seen[rel] {
			return nil
		}
		seen[rel] = true

		fi, err := d.Info()
		if err != nil {
			return err
		}
		plan.Files = append(plan.Files, rel)
		plan.Bytes += fi.Size()
		return nil
	}, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", root, err)
	}

	return plan, nil
}

// extensionPattern builds **/*{ext1,ext2} with glob metacharacters escaped
func extensionPattern(exts []string) string {
	quoted := make([]string, 0, len(exts))
	for _, ext := range exts {
		if ext == "" {
			continue
		}
		quoted = append(quoted, escapeMeta(ext))
	}
	switch len(quoted) {
	case 0:
		return ""
	case 1:
		return "**/*" + quoted[0]
	default:
		return "**/*{" + strings.Join(quoted, ",") + "}"
	}
}

func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\*?[]{},`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
