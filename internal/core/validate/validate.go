// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"strings"

	"github.com/hay-kot/criterio"
)

// RepoSlug validates an owner/name repository slug.
func RepoSlug(slug string) error {
	owner, name, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || name == "" {
		return fmt.Errorf("must be in owner/name form")
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("must be in owner/name form")
	}
	return nil
}

// RepoSlugField returns a criterio validator result for repo slugs.
func RepoSlugField(field, slug string) error {
	return criterio.Run(field, slug, RepoSlug)
}

// IssueTitle validates that an issue title is non-empty after trimming
// whitespace.
func IssueTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// IssueTitleField returns a criterio validator result for issue titles.
func IssueTitleField(field, title string) error {
	return criterio.Run(field, title, IssueTitle)
}
