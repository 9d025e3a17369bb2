package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daylog/internal/core/commitmsg"
	"github.com/colonyops/daylog/internal/core/ledger"
)

func testRecord(t *testing.T) commitmsg.Record {
	t.Helper()
	rec, err := commitmsg.Parse("[feat(auth)] add login\n\n[Body]\nadd session handling\n- wire cookie store")
	require.NoError(t, err)
	rec.Author = "dev"
	rec.SHA = "abc1234def"
	rec.Time = time.Date(2026, 8, 26, 14, 30, 5, 0, time.UTC)
	return rec
}

func TestRenderCommitBlock(t *testing.T) {
	block := RenderCommitBlock(testRecord(t), []string{"12"})

	want := `> <details>
> <summary>💫 14:30:05 - add login</summary>
>
> Type: feat (New Feature)
> Commit: abc1234
> Author: dev
>
> • add session handling
> • wire cookie store
>
> Related Issues:
> Related to #12
> </details>`

	assert.Equal(t, want, block)
}

func TestRenderCommitBlock_NoBodyNoRelated(t *testing.T) {
	rec := testRecord(t)
	rec.Body = nil

	block := RenderCommitBlock(rec, nil)
	assert.NotContains(t, block, "•")
	assert.NotContains(t, block, "Related Issues")
	assert.True(t, strings.HasSuffix(block, "> </details>"))
}

func buildDocument(t *testing.T) *Document {
	t.Helper()
	doc := NewDocument("📅 Development Status Report (2026-08-26) - daylog", "2026-08-26")
	doc.AppendBlock("Main", RenderCommitBlock(testRecord(t), []string{"12"}))

	doc.Ledger.Merge([]ledger.Entry{
		{Category: ledger.NewCategory(""), Text: "misc task", Checked: false},
		{Category: ledger.NewCategory("Security"), Text: "add 2FA", Checked: false},
		{Category: ledger.NewCategory("Security"), Text: "rotate keys", Checked: true},
	})
	return doc
}

func TestEncode_Structure(t *testing.T) {
	body := Encode(buildDocument(t))

	assert.Contains(t, body, "# 📅 Development Status Report (2026-08-26) - daylog")
	assert.Contains(t, body, "## 📊 Branch Summary")
	assert.Contains(t, body, `<summary><h3 style="display: inline;">✨ Main</h3></summary>`)
	assert.Contains(t, body, "## 📝 Todo")
	assert.Contains(t, body, `<summary><h3 style="display: inline;">📑 General (0/1)</h3></summary>`)
	assert.Contains(t, body, `<summary><h3 style="display: inline;">📑 Security (1/2)</h3></summary>`)
	assert.Contains(t, body, "- [ ] add 2FA")
	assert.Contains(t, body, "- [x] rotate keys")
}

func TestRoundTrip(t *testing.T) {
	doc := buildDocument(t)
	got := Decode(Encode(doc))

	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, "2026-08-26", got.Date)

	require.Len(t, got.Sections, 1)
	assert.Equal(t, "Main", got.Sections[0].Name)
	assert.Equal(t, doc.Sections[0].Blocks, got.Sections[0].Blocks)

	assert.Equal(t, doc.Ledger.Entries(), got.Ledger.Entries())

	// A second round trip is byte-stable.
	assert.Equal(t, Encode(doc), Encode(got))
}

func TestDecode_MultipleCommitBlocks(t *testing.T) {
	doc := NewDocument("t", "")
	rec := testRecord(t)
	doc.AppendBlock("Main", RenderCommitBlock(rec, nil))

	rec2 := rec
	rec2.Title = "second commit"
	rec2.SHA = "fff9999aaa"
	doc.AppendBlock("Main", RenderCommitBlock(rec2, nil))

	got := Decode(Encode(doc))
	require.Len(t, got.Sections, 1)
	assert.Len(t, got.Sections[0].Blocks, 2)
	assert.Contains(t, got.Sections[0].Blocks[1], "second commit")
}

func TestDecode_ToleratesForeignDecoration(t *testing.T) {
	// A body produced by an older serializer: different heading style,
	// no count suffix, a stray separator, plain @category markers.
	body := `# 📊 Development Status Report (2026-08-25) - daylog

<div align="center">

## 📊 Branch Summary

</div>

<details>
<summary><h3 class="x" style="display:inline">✨ Develop</h3></summary>

> <details>
> <summary>💫 09:00:00 - old commit</summary>
>
> Type: fix (Bug Fix)
> Commit: 1111111
> Author: dev
>
> </details>
</details>

## 📝 Todo

---

<details>
<summary>📑 Security</summary>

- [ ] add 2FA
- [X] rotate keys

⚫
</details>

@Build
- [ ] fix CI
`

	doc := Decode(body)

	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Develop", doc.Sections[0].Name)
	require.Len(t, doc.Sections[0].Blocks, 1)

	entries := doc.Ledger.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "add 2FA", entries[0].Text)
	assert.False(t, entries[0].Checked)
	assert.True(t, entries[1].Checked)
	assert.Equal(t, "Build", entries[2].Category.Display())
}

func TestDecode_MissingRegionsDegradeToEmpty(t *testing.T) {
	doc := Decode("just some text\n\nwith no structure at all")
	assert.Empty(t, doc.Sections)
	assert.Zero(t, doc.Ledger.Len())

	doc = Decode("")
	assert.Zero(t, doc.Ledger.Len())
}

func TestDecode_MultiParagraphCommitBodyNotMisSplit(t *testing.T) {
	block := "> <details>\n> <summary>💫 10:00:00 - big change</summary>\n>\n> Type: feat (New Feature)\n> Commit: abcd111\n> Author: dev\n>\n> • first paragraph\n\n> • second paragraph\n> </details>"

	doc := NewDocument("t", "")
	doc.AppendBlock("Main", block)

	got := Decode(Encode(doc))
	require.Len(t, got.Sections, 1)
	require.Len(t, got.Sections[0].Blocks, 1, "blank line inside a commit block must not split it")
}

func TestHasCommit(t *testing.T) {
	doc := buildDocument(t)

	assert.True(t, doc.HasCommit("add login", ""))
	assert.True(t, doc.HasCommit("", "abc1234"))
	assert.True(t, doc.HasCommit("add login", "abc1234"))
	assert.False(t, doc.HasCommit("something else", "9999999"))
	assert.False(t, doc.HasCommit("", ""))
}

func TestDecode_IssueRefExtraction(t *testing.T) {
	body := "## 📝 Todo\n\n<details>\n<summary>📑 Tasks (0/2)</summary>\n\n- [ ] #42\n- [ ] review rollout (#7)\n\n⚫\n</details>\n"

	doc := Decode(body)
	entries := doc.Ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "42", entries[0].IssueRef)
	assert.Equal(t, "7", entries[1].IssueRef)
}

func TestDateFromTitle(t *testing.T) {
	assert.Equal(t, "2026-08-26", DateFromTitle("📅 Development Status Report (2026-08-26) - repo"))
	assert.Equal(t, "", DateFromTitle("no date here"))
}
