package filesync

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// basePatterns are always excluded regardless of .gitignore content:
// the git database itself, platform artifacts and dependency trees that
// the platform restores on its own.
var basePatterns = []string{
	".git/",
	".ecode/",
	"node_modules/",
}

// Rules decides which paths the syncer mirrors. It combines the baked-in
// exclusions with every .gitignore found under the project root.
type Rules struct {
	matcher gitignore.Matcher
}

// LoadRules reads ignore rules for the given project root.
func LoadRules(root string) (*Rules, error) {
	patterns := make([]gitignore.Pattern, 0, len(basePatterns))
	for _, p := range basePatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	fromFiles, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil {
		return nil, fmt.Errorf("read gitignore patterns: %w", err)
	}
	patterns = append(patterns, fromFiles...)

	return &Rules{matcher: gitignore.NewMatcher(patterns)}, nil
}

// Ignored reports whether the relative path is excluded from syncing.
func (r *Rules) Ignored(relPath string, isDir bool) bool {
	if relPath == "" || relPath == "." {
		return false
	}
	return r.matcher.Match(strings.Split(filepath.ToSlash(relPath), "/"), isDir)
}
