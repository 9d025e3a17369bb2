package report

import (
	"regexp"
	"strings"

	"github.com/colonyops/daylog/internal/core/ledger"
)

// Decoder patterns key on structural markers only. Styling attributes,
// completion counters, and decorations vary between serializer
// versions and are ignored.
var (
	branchSummaryPattern   = regexp.MustCompile(`^<summary>(?:<h3[^>]*>)?\s*` + branchGlyph + `\s*(.+?)\s*(?:</h3>)?</summary>$`)
	categorySummaryPattern = regexp.MustCompile(`^<summary>(?:<h3[^>]*>)?\s*` + categoryGlyph + `\s*([^()]+?)(?:\s*\(\d+/\d+\))?\s*(?:</h3>)?</summary>$`)
	checkboxPattern        = regexp.MustCompile(`^-\s*\[([ xX])\]\s*(.*)$`)
	categoryLinePattern    = regexp.MustCompile(`^(?:#+\s*)?@(.+)$`)
	leadingIssueRefPattern = regexp.MustCompile(`^#(\d+)\b`)
	trailingIssueRefPattern = regexp.MustCompile(`\(#(\d+)\)`)
)

// Decode parses an existing record body back into a Document. It
// never fails: any region that does not match the expected pattern is
// treated as empty and the rest of the body is still recovered.
func Decode(body string) *Document {
	doc := &Document{Ledger: ledger.New()}

	var (
		inBranch      bool   // between a branch summary and its top-level closing marker
		currentBranch string
		commitLines   []string // accumulating one nested commit block
		inCommit      bool

		inTodo          bool
		currentCategory = ledger.NewCategory("")
	)

	flushCommit := func() {
		if len(commitLines) > 0 {
			doc.AppendBlock(currentBranch, strings.Join(commitLines, "\n"))
		}
		commitLines = nil
		inCommit = false
	}

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)

		if doc.Title == "" && strings.HasPrefix(line, "# ") {
			doc.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			doc.Date = DateFromTitle(doc.Title)
			continue
		}

		// Branch section scanning. Nested commit markers carry the quote
		// prefix, so a bare closing marker always ends the branch block
		// and multi-paragraph commit bodies never mis-split.
		if inBranch {
			switch {
			case strings.HasPrefix(line, "> <details>"):
				flushCommit()
				inCommit = true
				commitLines = append(commitLines, line)
			case inCommit:
				commitLines = append(commitLines, line)
				if strings.HasPrefix(line, "> </details>") {
					flushCommit()
				}
			case line == "</details>":
				flushCommit()
				inBranch = false
			}
			continue
		}

		if m := branchSummaryPattern.FindStringSubmatch(line); m != nil {
			inBranch = true
			currentBranch = m[1]
			doc.Section(currentBranch)
			continue
		}

		// Todo region scanning.
		if strings.Contains(line, todoHeading) || strings.EqualFold(line, "[Todo]") {
			inTodo = true
			continue
		}

		if m := categorySummaryPattern.FindStringSubmatch(line); m != nil {
			inTodo = true
			currentCategory = ledger.NewCategory(m[1])
			continue
		}

		if !inTodo {
			continue
		}

		switch {
		case line == "", line == "<details>", line == "</details>", line == todoTerminator:
			continue
		case strings.HasPrefix(line, "<div"), strings.HasPrefix(line, "</div"):
			continue
		}

		if m := checkboxPattern.FindStringSubmatch(line); m != nil {
			text := strings.TrimSpace(m[2])
			if text == "" {
				continue
			}
			doc.Ledger.Merge([]ledger.Entry{{
				Category: currentCategory,
				Text:     text,
				Checked:  strings.EqualFold(m[1], "x"),
				IssueRef: extractIssueRef(text),
			}})
			continue
		}

		if m := categoryLinePattern.FindStringSubmatch(line); m != nil {
			// Older serializer versions emit plain "@Category" markers.
			currentCategory = ledger.NewCategory(m[1])
		}
	}

	// An unterminated branch block still keeps what was accumulated.
	flushCommit()

	return doc
}

// extractIssueRef returns the issue number when the item text is a
// promoted issue reference like "#42" or carries a "(#42)" suffix.
func extractIssueRef(text string) string {
	if m := leadingIssueRefPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := trailingIssueRefPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
