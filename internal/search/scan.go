package search

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// fallbackScan is the last-resort path when ripgrep is unavailable or
// timed out: walk the scope directory directly, bounded by file count
// and per-file size so it can never balloon past a small, fixed cost.
func (e *Engine) fallbackScan(ctx context.Context, q Query) ([]Match, error) {
	re, err := regexp.Compile(q.Pattern)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(e.cfg.Exclude))
	for _, dir := range e.cfg.Exclude {
		excluded[dir] = true
	}

	matches := make([]Match, 0, 16)
	filesScanned := 0

	walkErr := filepath.WalkDir(q.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}

		if d.IsDir() {
			if excluded[d.Name()] || strings.HasPrefix(d.Name(), ".") && path != q.Dir {
				return filepath.SkipDir
			}
			return nil
		}

		if filesScanned >= e.cfg.FallbackMaxFiles || len(matches) >= q.MaxMatches {
			return filepath.SkipAll
		}
		if !isTextSourceFile(d.Name()) {
			return nil
		}
		if e.ignorer != nil {
			if rel, relErr := filepath.Rel(e.cfg.WorkspaceRoot, path); relErr == nil && e.ignorer.MatchesPath(rel) {
				return nil
			}
		}
		if info, infoErr := d.Info(); infoErr != nil || info.Size() > int64(e.cfg.FallbackMaxFileBytes) {
			return nil
		}

		filesScanned++
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}

		for i, line := range strings.Split(string(data), "\n") {
			for _, loc := range re.FindAllStringIndex(line, -1) {
				matches = append(matches, Match{
					Path:   path,
					Line:   i + 1,
					Column: loc[0],
					Text:   strings.TrimRight(line, "\r"),
					Word:   line[loc[0]:loc[1]],
				})
				if len(matches) >= q.MaxMatches {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if err := ctx.Err(); err != nil {
		return matches, nil //nolint:nilerr // partial results beat none at the last resort
	}
	return matches, nil
}

// isTextSourceFile filters the fallback walk to the source extensions
// the resolution layers understand.
func isTextSourceFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".rs", ".java", ".kt",
		".c", ".h", ".cpp", ".hpp", ".rb", ".php", ".cs", ".swift", ".scala",
		".md", ".txt", ".json", ".yaml", ".yml", ".toml":
		return true
	default:
		return false
	}
}
