// Package git reads commit history from a local repository via the
// git command-line tool.
package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/daylog/pkg/executil"
)

// Commit is one commit as read from git log.
type Commit struct {
	SHA     string
	Author  string
	Time    time.Time
	Message string
}

// Title returns the first line of the commit message.
func (c Commit) Title() string {
	title, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(title)
}

// IsMerge reports whether the commit message is a merge message.
func (c Commit) IsMerge() bool {
	return strings.HasPrefix(strings.TrimSpace(c.Message), "Merge")
}

// Executor reads history using the git binary.
type Executor struct {
	gitPath string
	exec    executil.Executor
}

// NewExecutor creates a git executor with the specified binary path.
func NewExecutor(gitPath string, exec executil.Executor) *Executor {
	return &Executor{gitPath: gitPath, exec: exec}
}

// Record and field separators for the log pretty format. Commit
// messages contain newlines, so line-oriented parsing is not enough.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
	logFormat = "%H" + fieldSep + "%an" + fieldSep + "%aI" + fieldSep + "%B" + recordSep
)

// CurrentBranch returns the checked-out branch name, or the short HEAD
// SHA when detached.
func (e *Executor) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("git branch: %w", err)
	}

	branch := strings.TrimSpace(string(out))
	if branch != "" {
		return branch, nil
	}

	out, err = e.exec.RunDir(ctx, dir, e.gitPath, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Head returns the full SHA of HEAD.
func (e *Executor) Head(ctx context.Context, dir string) (string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Commit returns a single commit by revision.
func (e *Executor) Commit(ctx context.Context, dir, rev string) (Commit, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "log", "-1", "--pretty=format:"+logFormat, rev)
	if err != nil {
		return Commit{}, fmt.Errorf("git log %s: %w", rev, err)
	}

	commits := parseLog(out)
	if len(commits) == 0 {
		return Commit{}, fmt.Errorf("git log %s: no commit found", rev)
	}
	return commits[0], nil
}

// CommitsOnDay returns the commits authored on the given calendar day
// (in loc) reachable from rev, newest first.
func (e *Executor) CommitsOnDay(ctx context.Context, dir, rev string, day time.Time, loc *time.Location) ([]Commit, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)

	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "log", rev,
		"--since="+start.Format(time.RFC3339),
		"--until="+end.Format(time.RFC3339),
		"--pretty=format:"+logFormat)
	if err != nil {
		return nil, fmt.Errorf("git log %s: %w", rev, err)
	}

	return parseLog(out), nil
}

// MergeParents returns the parent SHAs of a commit. Two entries mean a
// merge commit.
func (e *Executor) MergeParents(ctx context.Context, dir, sha string) ([]string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "log", "-1", "--pretty=format:%P", sha)
	if err != nil {
		return nil, fmt.Errorf("git log parents %s: %w", sha, err)
	}
	return strings.Fields(strings.TrimSpace(string(out))), nil
}

// CommitsBetween returns the commits reachable from "to" but not from
// "from", newest first. Used to expand a merge commit into the commits
// each parent side contributed.
func (e *Executor) CommitsBetween(ctx context.Context, dir, from, to string) ([]Commit, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "log", from+".."+to, "--pretty=format:"+logFormat)
	if err != nil {
		return nil, fmt.Errorf("git log %s..%s: %w", from, to, err)
	}
	return parseLog(out), nil
}

func parseLog(out []byte) []Commit {
	var commits []Commit

	for _, record := range strings.Split(string(out), recordSep) {
		record = strings.TrimLeft(record, "\n")
		if strings.TrimSpace(record) == "" {
			continue
		}

		fields := strings.SplitN(record, fieldSep, 4)
		if len(fields) != 4 {
			continue
		}

		ts, err := time.Parse(time.RFC3339, fields[2])
		if err != nil {
			continue
		}

		commits = append(commits, Commit{
			SHA:     strings.TrimSpace(fields[0]),
			Author:  fields[1],
			Time:    ts,
			Message: strings.TrimRight(fields[3], "\n"),
		})
	}

	return commits
}
