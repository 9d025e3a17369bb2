// Package commitmsg parses commit messages that follow the
// [type(scope)] title convention with optional [Body], [Todo], and
// [Footer] sections.
package commitmsg

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrMergeCommit is returned for merge-commit messages. Callers are
	// expected to expand the merge into its constituent commits instead
	// of logging the merge itself.
	ErrMergeCommit = errors.New("merge commit message")
	// ErrBadFormat is returned when the first line does not match the
	// [type(scope)] title convention. The commit is skipped, not fatal.
	ErrBadFormat = errors.New("commit message does not match [type] convention")
)

// Type classifies a commit by its bracketed tag.
type Type string

const (
	TypeFeat     Type = "feat"
	TypeFix      Type = "fix"
	TypeRefactor Type = "refactor"
	TypeDocs     Type = "docs"
	TypeTest     Type = "test"
	TypeChore    Type = "chore"
	TypeStyle    Type = "style"
	TypePerf     Type = "perf"
	// TypeOther is the fallback for unrecognized tags.
	TypeOther Type = "other"
)

// TypeInfo carries the display metadata for a commit type.
type TypeInfo struct {
	Emoji       string
	Label       string
	Description string
}

var typeInfos = map[Type]TypeInfo{
	TypeFeat:     {Emoji: "✨", Label: "feature", Description: "New Feature"},
	TypeFix:      {Emoji: "🐛", Label: "bug", Description: "Bug Fix"},
	TypeRefactor: {Emoji: "♻️", Label: "refactor", Description: "Code Refactoring"},
	TypeDocs:     {Emoji: "📝", Label: "documentation", Description: "Documentation Update"},
	TypeTest:     {Emoji: "✅", Label: "test", Description: "Test Update"},
	TypeChore:    {Emoji: "🔧", Label: "chore", Description: "Build/Config Update"},
	TypeStyle:    {Emoji: "💄", Label: "style", Description: "Code Style Update"},
	TypePerf:     {Emoji: "⚡️", Label: "performance", Description: "Performance Improvement"},
	TypeOther:    {Emoji: "🔍", Label: "other", Description: "Other"},
}

// Info returns display metadata for the type.
func (t Type) Info() TypeInfo {
	if info, ok := typeInfos[t]; ok {
		return info
	}
	return typeInfos[TypeOther]
}

// ParseType maps a raw tag to a Type, falling back to TypeOther for
// anything unrecognized.
func ParseType(raw string) Type {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := typeInfos[t]; ok && t != TypeOther {
		return t
	}
	return TypeOther
}

// TodoRef is a single todo item as authored in a commit message.
type TodoRef struct {
	Category string
	Text     string
}

// Record is the parsed form of one commit message plus the commit
// metadata supplied by the caller. Immutable once parsed.
type Record struct {
	Type   Type
	Scope  string
	Title  string
	Body   []string
	Todos  []TodoRef
	Footer []string

	Author string
	SHA    string
	Time   time.Time
}

// ShortSHA returns the abbreviated commit id used in rendered output.
func (r Record) ShortSHA() string {
	if len(r.SHA) > 7 {
		return r.SHA[:7]
	}
	return r.SHA
}

var issueRefPattern = regexp.MustCompile(`#(\d+)`)

// IssueRefs returns the distinct issue numbers referenced anywhere in
// the title, body, or footer, in first-seen order.
func (r Record) IssueRefs() []string {
	var (
		seen = map[string]struct{}{}
		refs []string
	)

	scan := func(line string) {
		for _, m := range issueRefPattern.FindAllStringSubmatch(line, -1) {
			if _, ok := seen[m[1]]; ok {
				continue
			}
			seen[m[1]] = struct{}{}
			refs = append(refs, m[1])
		}
	}

	scan(r.Title)
	for _, line := range r.Body {
		scan(line)
	}
	for _, line := range r.Footer {
		scan(line)
	}

	return refs
}

// parseState tracks which accumulation region the line scanner is in.
type parseState int

const (
	stateTitle parseState = iota
	stateBody
	stateTodo
	stateFooter
)

var titlePattern = regexp.MustCompile(`^\[([^(\]]+?)(?:\(([^)]*)\))?\]\s*(.+)$`)

// IsMergeMessage reports whether the message is a merge-commit message.
// Merge commits are never parsed as records; callers expand them into
// their constituent commits instead.
func IsMergeMessage(message string) bool {
	return strings.HasPrefix(strings.TrimSpace(message), "Merge")
}

// Parse converts a raw commit message into a Record. It returns
// ErrMergeCommit for merge messages and ErrBadFormat when the first
// non-empty line does not match the convention. Unknown type tags map
// to TypeOther rather than failing.
func Parse(message string) (Record, error) {
	if IsMergeMessage(message) {
		return Record{}, ErrMergeCommit
	}

	lines := strings.Split(strings.TrimSpace(message), "\n")

	// First non-empty line carries the [type(scope)] title.
	idx := 0
	for idx < len(lines) && strings.TrimSpace(lines[idx]) == "" {
		idx++
	}
	if idx == len(lines) {
		return Record{}, fmt.Errorf("empty message: %w", ErrBadFormat)
	}

	titleLine := strings.TrimSpace(lines[idx])
	m := titlePattern.FindStringSubmatch(titleLine)
	if m == nil {
		return Record{}, fmt.Errorf("%q: %w", titleLine, ErrBadFormat)
	}

	rec := Record{
		Type:  ParseType(m[1]),
		Scope: strings.TrimSpace(m[2]),
		Title: strings.TrimSpace(m[3]),
	}

	state := stateTitle
	currentCategory := ""

	for _, raw := range lines[idx+1:] {
		line := strings.TrimSpace(raw)

		switch {
		case equalsMarker(line, "[Body]"):
			state = stateBody
			continue
		case equalsMarker(line, "[Todo]"):
			state = stateTodo
			currentCategory = ""
			continue
		case equalsMarker(line, "[Footer]"):
			state = stateFooter
			continue
		}

		if line == "" {
			continue
		}

		switch state {
		case stateTitle:
			// Lines before the first section marker are ignored.
		case stateBody:
			rec.Body = append(rec.Body, line)
		case stateTodo:
			currentCategory = parseTodoLine(line, currentCategory, &rec.Todos)
		case stateFooter:
			rec.Footer = append(rec.Footer, line)
		}
	}

	return rec, nil
}

// equalsMarker matches section markers case-insensitively.
func equalsMarker(line, marker string) bool {
	return strings.EqualFold(line, marker)
}

// parseTodoLine classifies one line of the [Todo] region. An @ line
// opens a category; a -/* line appends an item under the current
// category, defaulting to General when no category has been opened.
func parseTodoLine(line, currentCategory string, todos *[]TodoRef) string {
	if strings.HasPrefix(line, "@") {
		return strings.TrimSpace(line[1:])
	}

	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
		text := strings.TrimSpace(line[1:])
		if text == "" {
			return currentCategory
		}
		category := currentCategory
		if category == "" {
			category = "General"
		}
		*todos = append(*todos, TodoRef{Category: category, Text: text})
	}

	return currentCategory
}
