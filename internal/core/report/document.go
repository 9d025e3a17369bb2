// Package report implements the markdown codec for the daily status
// report body: serializing a day's state into the collapsible-block
// micro-format and parsing an existing body back into the same
// structures.
package report

import (
	"regexp"
	"strings"

	"github.com/colonyops/daylog/internal/core/ledger"
)

// BranchSection accumulates the pre-rendered commit blocks for one
// branch (or author) key. Blocks are kept verbatim so a re-encode
// reproduces them byte for byte.
type BranchSection struct {
	Name   string
	Blocks []string
}

// Document is the in-memory form of one daily report. It is created
// fresh when no open record exists for the date, or recovered by
// Decode, mutated during a run, and written back exactly once.
type Document struct {
	Title    string
	Date     string
	Sections []BranchSection
	Ledger   *ledger.Ledger
}

// NewDocument returns an empty document for the given title and date.
func NewDocument(title, date string) *Document {
	return &Document{
		Title:  title,
		Date:   date,
		Ledger: ledger.New(),
	}
}

// Section returns the section for a branch, creating it if needed.
func (d *Document) Section(branch string) *BranchSection {
	for i := range d.Sections {
		if d.Sections[i].Name == branch {
			return &d.Sections[i]
		}
	}
	d.Sections = append(d.Sections, BranchSection{Name: branch})
	return &d.Sections[len(d.Sections)-1]
}

// AppendBlock adds a rendered commit block to a branch section.
func (d *Document) AppendBlock(branch, block string) {
	s := d.Section(branch)
	s.Blocks = append(s.Blocks, block)
}

// CommitCount returns the total number of commit blocks across all
// branch sections.
func (d *Document) CommitCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Blocks)
	}
	return n
}

var summaryInnerPattern = regexp.MustCompile(`<summary>(.*?)</summary>`)

// HasCommit reports whether a commit with the given rendered title or
// short SHA already appears in any branch section. This is the de-dup
// check: the same commit pushed twice (or seen again across runs)
// must produce exactly one rendered block.
func (d *Document) HasCommit(title, shortSHA string) bool {
	commitLine := "> Commit: " + shortSHA
	for _, s := range d.Sections {
		for _, block := range s.Blocks {
			if shortSHA != "" && strings.Contains(block, commitLine) {
				return true
			}
			if title == "" {
				continue
			}
			for _, m := range summaryInnerPattern.FindAllStringSubmatch(block, -1) {
				if strings.Contains(m[1], title) {
					return true
				}
			}
		}
	}
	return false
}

var datePattern = regexp.MustCompile(`\((\d{4}-\d{2}-\d{2})\)`)

// DateFromTitle extracts the YYYY-MM-DD date embedded in a record
// title, or "" when none is present.
func DateFromTitle(title string) string {
	m := datePattern.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return m[1]
}
