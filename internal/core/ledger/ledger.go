// Package ledger holds the categorized TODO ledger for one daily
// report and its merge rules.
package ledger

import "strings"

const generalKey = "general"

// GeneralName is the display name of the default category.
const GeneralName = "General"

// Category is a case-insensitive grouping label. Equality is on the
// lowercased trimmed key; the display casing is whichever spelling was
// registered first and never changes for the lifetime of a ledger.
type Category struct {
	key     string
	display string
}

// NewCategory builds a Category from a raw name. Empty or blank names
// map to General.
func NewCategory(name string) Category {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{key: generalKey, display: GeneralName}
	}
	return Category{key: strings.ToLower(name), display: name}
}

// Key returns the case-insensitive identity of the category.
func (c Category) Key() string { return c.key }

// Display returns the first-seen casing of the category name.
func (c Category) Display() string { return c.display }

// IsGeneral reports whether this is the default category.
func (c Category) IsGeneral() bool { return c.key == generalKey }

// Entry is one TODO item. Identity for deduplication is
// (category key, text).
type Entry struct {
	Category Category
	Text     string
	Checked  bool
	// IssueRef holds the linked tracker issue number, when the item was
	// promoted to a standalone issue.
	IssueRef string
}

type run struct {
	category Category
	entries  []Entry
}

// Ledger is an ordered mapping from category to an ordered list of
// entries. General always renders first when non-empty; other
// categories keep first-seen order.
type Ledger struct {
	runs  []*run         // first-seen order, General included wherever it was first seen
	index map[string]int // category key -> position in runs
	items map[string]int // category key + "\x00" + text -> index within that run
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		index: map[string]int{},
		items: map[string]int{},
	}
}

func itemKey(categoryKey, text string) string {
	return categoryKey + "\x00" + text
}

// Merge folds incoming entries into the ledger in order. Existing
// identities keep their position; their checked state is the monotonic
// union of both sides. New identities are appended to the end of their
// category's run. New categories are registered with the incoming
// display casing. Merge cannot fail; blank categories file under
// General.
func (l *Ledger) Merge(incoming []Entry) {
	for _, e := range incoming {
		cat := e.Category
		if cat.key == "" {
			cat = NewCategory(e.Category.display)
		}

		pos, ok := l.index[cat.key]
		if !ok {
			pos = len(l.runs)
			l.index[cat.key] = pos
			l.runs = append(l.runs, &run{category: cat})
		}
		r := l.runs[pos]

		key := itemKey(cat.key, e.Text)
		if i, exists := l.items[key]; exists {
			if e.Checked {
				r.entries[i].Checked = true
			}
			if e.IssueRef != "" && r.entries[i].IssueRef == "" {
				r.entries[i].IssueRef = e.IssueRef
			}
			continue
		}

		l.items[key] = len(r.entries)
		r.entries = append(r.entries, Entry{
			Category: r.category, // canonical first-seen casing
			Text:     e.Text,
			Checked:  e.Checked,
			IssueRef: e.IssueRef,
		})
	}
}

// orderedRuns returns non-empty runs with General first.
func (l *Ledger) orderedRuns() []*run {
	out := make([]*run, 0, len(l.runs))
	if pos, ok := l.index[generalKey]; ok && len(l.runs[pos].entries) > 0 {
		out = append(out, l.runs[pos])
	}
	for _, r := range l.runs {
		if r.category.key == generalKey || len(r.entries) == 0 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Categories returns the non-empty categories in output order.
func (l *Ledger) Categories() []Category {
	runs := l.orderedRuns()
	cats := make([]Category, len(runs))
	for i, r := range runs {
		cats[i] = r.category
	}
	return cats
}

// Entries returns all entries in output order.
func (l *Ledger) Entries() []Entry {
	var out []Entry
	for _, r := range l.orderedRuns() {
		out = append(out, r.entries...)
	}
	return out
}

// CategoryEntries returns the entries of one category in order.
func (l *Ledger) CategoryEntries(c Category) []Entry {
	pos, ok := l.index[c.key]
	if !ok {
		return nil
	}
	entries := make([]Entry, len(l.runs[pos].entries))
	copy(entries, l.runs[pos].entries)
	return entries
}

// Counts returns (completed, total) for one category.
func (l *Ledger) Counts(c Category) (completed, total int) {
	pos, ok := l.index[c.key]
	if !ok {
		return 0, 0
	}
	for _, e := range l.runs[pos].entries {
		total++
		if e.Checked {
			completed++
		}
	}
	return completed, total
}

// Unchecked returns the entries that are still open, in output order.
// Used at rotation to harvest carry-forward items.
func (l *Ledger) Unchecked() []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if !e.Checked {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the total number of entries.
func (l *Ledger) Len() int {
	n := 0
	for _, r := range l.runs {
		n += len(r.entries)
	}
	return n
}

// SetText rewrites the text of an existing entry, keeping its position.
// Used when a todo item is promoted to a tracker issue and its text is
// replaced by the issue reference.
func (l *Ledger) SetText(c Category, oldText, newText, issueRef string) bool {
	pos, ok := l.index[c.key]
	if !ok {
		return false
	}
	key := itemKey(c.key, oldText)
	i, ok := l.items[key]
	if !ok {
		return false
	}

	r := l.runs[pos]
	r.entries[i].Text = newText
	r.entries[i].IssueRef = issueRef
	delete(l.items, key)
	l.items[itemKey(c.key, newText)] = i
	return true
}
