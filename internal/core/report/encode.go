package report

import (
	"fmt"
	"strings"

	"github.com/colonyops/daylog/internal/core/commitmsg"
	"github.com/colonyops/daylog/internal/core/ledger"
)

// Structural markers shared by the encoder and decoder. The decoder
// keys on these and ignores incidental styling, so older bodies that
// decorate differently still parse.
const (
	branchHeading = "## 📊 Branch Summary"
	todoHeading   = "## 📝 Todo"

	branchGlyph   = "✨"
	commitGlyph   = "💫"
	categoryGlyph = "📑"

	// todoTerminator is a decorative line the decoder skips.
	todoTerminator = "⚫"
)

// Encode serializes the document into the markdown micro-format.
func Encode(doc *Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", doc.Title)

	b.WriteString("<div align=\"center\">\n\n")
	b.WriteString(branchHeading + "\n\n")
	b.WriteString("</div>\n\n")

	for _, s := range doc.Sections {
		b.WriteString(encodeBranchSection(s))
		b.WriteString("\n\n")
	}

	b.WriteString("<div align=\"center\">\n\n")
	b.WriteString(todoHeading + "\n\n")
	b.WriteString("</div>\n")

	todos := encodeTodoSections(doc.Ledger)
	if todos != "" {
		b.WriteString("\n" + todos + "\n")
	}

	return b.String()
}

func encodeBranchSection(s BranchSection) string {
	var b strings.Builder
	b.WriteString("<details>\n")
	fmt.Fprintf(&b, "<summary><h3 style=\"display: inline;\">%s %s</h3></summary>\n\n", branchGlyph, s.Name)
	b.WriteString(strings.Join(s.Blocks, "\n\n"))
	b.WriteString("\n</details>")
	return b.String()
}

func encodeTodoSections(l *ledger.Ledger) string {
	if l == nil || l.Len() == 0 {
		return ""
	}

	var sections []string
	for _, cat := range l.Categories() {
		completed, total := l.Counts(cat)

		var b strings.Builder
		b.WriteString("<details>\n")
		fmt.Fprintf(&b, "<summary><h3 style=\"display: inline;\">%s %s (%d/%d)</h3></summary>\n\n",
			categoryGlyph, cat.Display(), completed, total)

		for _, e := range l.CategoryEntries(cat) {
			box := "[ ]"
			if e.Checked {
				box = "[x]"
			}
			fmt.Fprintf(&b, "- %s %s\n", box, e.Text)
		}

		b.WriteString("\n" + todoTerminator + "\n</details>")
		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n\n")
}

// RenderCommitBlock renders one commit as a nested quoted collapsible
// block: a summary line with timestamp and title, type/commit/author
// metadata, bulleted body lines, and optional related-issue lines.
func RenderCommitBlock(rec commitmsg.Record, related []string) string {
	var b strings.Builder

	b.WriteString("> <details>\n")
	fmt.Fprintf(&b, "> <summary>%s %s - %s</summary>\n", commitGlyph, rec.Time.Format("15:04:05"), rec.Title)
	b.WriteString(">\n")
	fmt.Fprintf(&b, "> Type: %s (%s)\n", rec.Type, rec.Type.Info().Description)
	fmt.Fprintf(&b, "> Commit: %s\n", rec.ShortSHA())
	fmt.Fprintf(&b, "> Author: %s\n", rec.Author)

	if len(rec.Body) > 0 {
		b.WriteString(">\n")
		for _, line := range rec.Body {
			line = strings.TrimSpace(strings.TrimPrefix(line, "-"))
			fmt.Fprintf(&b, "> • %s\n", line)
		}
	}

	if len(related) > 0 {
		b.WriteString(">\n> Related Issues:\n")
		for _, ref := range related {
			fmt.Fprintf(&b, "> Related to #%s\n", ref)
		}
	}

	b.WriteString("> </details>")
	return b.String()
}
