package doctor

import (
	"context"
	"fmt"
	"os"
)

// WorkspaceCheck verifies that the data directory and the proposals
// directory exist and are usable.
type WorkspaceCheck struct {
	dataDir      string
	proposalsDir string
}

// NewWorkspaceCheck creates a workspace check.
func NewWorkspaceCheck(dataDir, proposalsDir string) *WorkspaceCheck {
	return &WorkspaceCheck{dataDir: dataDir, proposalsDir: proposalsDir}
}

func (c *WorkspaceCheck) Name() string {
	return "Workspace"
}

func (c *WorkspaceCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	result.Items = append(result.Items, checkDir("data dir", c.dataDir, StatusFail))

	// Proposals are optional; a missing directory only means there is
	// nothing to submit.
	result.Items = append(result.Items, checkDir("proposals dir", c.proposalsDir, StatusWarn))

	return result
}

func checkDir(label, dir string, missingStatus Status) CheckItem {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return CheckItem{
			Label:  label,
			Status: missingStatus,
			Detail: dir + " does not exist",
		}
	case err != nil:
		return CheckItem{
			Label:  label,
			Status: StatusFail,
			Detail: fmt.Sprintf("inaccessible: %v", err),
		}
	case !info.IsDir():
		return CheckItem{
			Label:  label,
			Status: StatusFail,
			Detail: dir + " is not a directory",
		}
	default:
		return CheckItem{
			Label:  label,
			Status: StatusPass,
			Detail: dir,
		}
	}
}
