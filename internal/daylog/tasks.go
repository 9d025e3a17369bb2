package daylog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/daylog/internal/core/config"
	"github.com/colonyops/daylog/internal/core/logging"
	"github.com/colonyops/daylog/internal/core/validate"
	"github.com/colonyops/daylog/internal/data/issuestore"
	"github.com/colonyops/daylog/pkg/tmpl"
)

// Task workflow labels.
const (
	proposalLabel = "proposal"
	approvedLabel = "approved"
	taskLabel     = "task"
)

// Proposal is one parsed task proposal file.
type Proposal struct {
	Path         string
	Name         string
	Proposer     string
	ProposalDate string
	TargetDate   string
	Purpose      string
	Scope        string
	Required     []string
	Optional     []string
	Schedule     []ScheduleItem
}

// ScheduleItem is one row of the proposal schedule.
type ScheduleItem struct {
	Name     string
	Start    string
	Duration string
}

// Gantt renders the schedule rows as mermaid gantt tasks.
func (p Proposal) Gantt() string {
	lines := make([]string, 0, len(p.Schedule))
	for _, item := range p.Schedule {
		lines = append(lines, fmt.Sprintf("    %s :%s, %s", item.Name, item.Start, item.Duration))
	}
	return strings.Join(lines, "\n")
}

// ParseProposal reads the proposal file format: leading "key,value"
// header lines followed by "[Section]" blocks whose lines belong to
// the most recent section marker.
func ParseProposal(path string, r io.Reader) (Proposal, error) {
	p := Proposal{Path: path}

	headers := map[string]string{}
	sections := map[string][]string{}
	section := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		if section != "" {
			sections[section] = append(sections[section], line)
			continue
		}

		key, value, ok := strings.Cut(line, ",")
		if !ok {
			return Proposal{}, fmt.Errorf("proposal %s: header line %q is not key,value", path, line)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return Proposal{}, fmt.Errorf("proposal %s: %w", path, err)
	}

	p.Proposer = headers["Proposer"]
	p.ProposalDate = headers["Proposal Date"]
	p.TargetDate = headers["Target Date"]
	p.Name = strings.Join(sections["Task Name"], " ")
	p.Purpose = strings.Join(sections["Task Purpose"], "\n")
	p.Scope = strings.Join(sections["Task Scope"], "\n")
	p.Required = sections["Required Features"]
	p.Optional = sections["Optional Features"]

	for _, line := range sections["Schedule"] {
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return Proposal{}, fmt.Errorf("proposal %s: schedule line %q is not task,date,duration", path, line)
		}
		p.Schedule = append(p.Schedule, ScheduleItem{
			Name:     strings.TrimSpace(parts[0]),
			Start:    strings.TrimSpace(parts[1]),
			Duration: strings.TrimSpace(parts[2]),
		})
	}

	if err := validate.IssueTitleField("task name", p.Name); err != nil {
		return Proposal{}, fmt.Errorf("proposal %s: %w", path, err)
	}

	return p, nil
}

const proposalBodyTemplate = `# Task Proposal

## Overview

- **Task Name**: {{ .Name }}
- **Proposer**: {{ .Proposer | orDefault "unknown" }}
- **Proposal Date**: {{ .ProposalDate | orDefault "unspecified" }}
- **Target Date**: {{ .TargetDate | orDefault "unspecified" }}

## Purpose

{{ .Purpose }}

## Scope

{{ .Scope }}

## Required Features

{{ range .Required }}- [ ] {{ . }}
{{ end }}
## Optional Features

{{ range .Optional }}- [ ] {{ . }}
{{ end }}
## Schedule

` + "```mermaid" + `
gantt
    title Task Implementation Schedule
    dateFormat YYYY-MM-DD
    section Development
{{ .Gantt }}
` + "```" + `
`

const taskBodyTemplate = `# Task Details

## Information

- **Created from Proposal**: #{{ .ProposalNumber }}
- **Proposer**: {{ .Proposer | orDefault "unknown" }}
- **Target Date**: {{ .TargetDate | orDefault "unspecified" }}

## Purpose

{{ .Purpose }}

## Requirements

{{ range .Required }}- [ ] {{ . }}
{{ end }}`

// Tasks manages the proposal-to-task workflow on the tracker.
type Tasks struct {
	cfg   *config.Config
	store issuestore.Store
	log   zerolog.Logger
}

// NewTasks creates a task service.
func NewTasks(cfg *config.Config, store issuestore.Store) *Tasks {
	return &Tasks{
		cfg:   cfg,
		store: store,
		log:   logging.Component("tasks"),
	}
}

// SubmitResult reports what Submit did.
type SubmitResult struct {
	Created []int
	Files   []string
}

// Submit converts every proposal file in the configured directory into
// a proposal issue and removes the file afterwards. Dry runs parse and
// report without touching the tracker or the files.
func (t *Tasks) Submit(ctx context.Context, repoDir string, dryRun bool) (*SubmitResult, error) {
	dir := t.cfg.ProposalsPath(repoDir)

	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("scan proposals dir: %w", err)
	}
	sort.Strings(matches)

	result := &SubmitResult{}
	for _, path := range matches {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open proposal: %w", err)
		}
		proposal, err := ParseProposal(path, f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}

		result.Files = append(result.Files, path)
		if dryRun {
			continue
		}

		body, err := tmpl.Render(proposalBodyTemplate, proposal)
		if err != nil {
			return nil, fmt.Errorf("render proposal body: %w", err)
		}

		created, err := t.store.Create(ctx, issuestore.NewIssue{
			Title:  "[Proposal] " + proposal.Name,
			Body:   body,
			Labels: []string{proposalLabel, t.cfg.Tasks.ApprovalLabel},
		})
		if err != nil {
			return nil, fmt.Errorf("create proposal issue: %w", err)
		}
		result.Created = append(result.Created, created.Number)

		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove proposal file: %w", err)
		}

		t.log.Info().Int("number", created.Number).Str("file", path).Msg("proposal submitted")
	}

	return result, nil
}

// ConvertResult reports what ConvertApproved did.
type ConvertResult struct {
	// Tasks maps proposal number to the created task number.
	Tasks map[int]int
}

// ConvertApproved turns every open, approved proposal into a task
// issue, links the two with comments, and closes the proposal.
func (t *Tasks) ConvertApproved(ctx context.Context) (*ConvertResult, error) {
	proposals, err := t.store.ListOpen(ctx, proposalLabel)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	result := &ConvertResult{Tasks: map[int]int{}}
	for _, proposal := range proposals {
		if !proposal.HasLabel(approvedLabel) {
			continue
		}

		task, err := t.convert(ctx, proposal)
		if err != nil {
			t.log.Error().Err(err).Int("number", proposal.Number).Msg("proposal conversion failed")
			comment := fmt.Sprintf("Conversion failed: %v. Check the proposal format and try again.", err)
			if cerr := t.store.Comment(ctx, proposal.Number, comment); cerr != nil {
				t.log.Warn().Err(cerr).Int("number", proposal.Number).Msg("comment proposal")
			}
			continue
		}

		result.Tasks[proposal.Number] = task
	}

	return result, nil
}

func (t *Tasks) convert(ctx context.Context, proposal issuestore.Record) (int, error) {
	parsed := parseProposalBody(proposal.Body)

	title := strings.TrimSpace(strings.TrimPrefix(proposal.Title, "[Proposal]"))
	body, err := tmpl.Render(taskBodyTemplate, map[string]any{
		"ProposalNumber": proposal.Number,
		"Proposer":       parsed.Proposer,
		"TargetDate":     parsed.TargetDate,
		"Purpose":        parsed.Purpose,
		"Required":       parsed.Required,
	})
	if err != nil {
		return 0, fmt.Errorf("render task body: %w", err)
	}

	task, err := t.store.Create(ctx, issuestore.NewIssue{
		Title:  "[Task] " + title,
		Body:   body,
		Labels: []string{taskLabel},
	})
	if err != nil {
		return 0, fmt.Errorf("create task issue: %w", err)
	}

	linkComment := fmt.Sprintf("Converted to task #%d.", task.Number)
	if err := t.store.Comment(ctx, proposal.Number, linkComment); err != nil {
		return 0, fmt.Errorf("comment proposal %d: %w", proposal.Number, err)
	}
	backComment := fmt.Sprintf("Created from proposal #%d.", proposal.Number)
	if err := t.store.Comment(ctx, task.Number, backComment); err != nil {
		return 0, fmt.Errorf("comment task %d: %w", task.Number, err)
	}

	if err := t.store.Close(ctx, proposal.Number); err != nil {
		return 0, fmt.Errorf("close proposal %d: %w", proposal.Number, err)
	}

	t.log.Info().Int("proposal", proposal.Number).Int("task", task.Number).Msg("proposal converted")
	return task.Number, nil
}

// proposalBody is the structured information recovered from a proposal
// issue body.
type proposalBody struct {
	Proposer   string
	TargetDate string
	Purpose    string
	Required   []string
}

// parseProposalBody reads back the fields our own submit template
// wrote. Missing regions degrade to empty values.
func parseProposalBody(body string) proposalBody {
	var out proposalBody

	section := ""
	var purpose []string

	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "## ") {
			section = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}

		switch section {
		case "Overview":
			if v, ok := bulletValue(line, "Proposer"); ok {
				out.Proposer = v
			}
			if v, ok := bulletValue(line, "Target Date"); ok {
				out.TargetDate = v
			}
		case "Purpose":
			if line != "" {
				purpose = append(purpose, line)
			}
		case "Required Features":
			if item, ok := strings.CutPrefix(line, "- [ ]"); ok {
				out.Required = append(out.Required, strings.TrimSpace(item))
			}
		}
	}

	out.Purpose = strings.Join(purpose, "\n")
	return out
}

func bulletValue(line, key string) (string, bool) {
	prefix := "- **" + key + "**:"
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
}
