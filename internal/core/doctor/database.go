package doctor

import (
	"context"

	"github.com/colonyops/daylog/internal/data/db"
	"github.com/colonyops/daylog/internal/data/stores"
)

// DatabaseCheck opens the local database and reports corruption as a
// fixable failure. Fixing moves the damaged files aside so the next
// open recreates the schema.
type DatabaseCheck struct {
	dataDir string
}

// NewDatabaseCheck creates a database check.
func NewDatabaseCheck(dataDir string) *DatabaseCheck {
	return &DatabaseCheck{dataDir: dataDir}
}

func (c *DatabaseCheck) Name() string {
	return "Database"
}

func (c *DatabaseCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	database, err := db.Open(c.dataDir)
	if err != nil {
		item := CheckItem{
			Label:  "open",
			Status: StatusFail,
			Detail: err.Error(),
		}
		if stores.IsCorruptionError(err) {
			item.Detail = "database is corrupted"
			item.Fixable = true
		}
		result.Items = append(result.Items, item)
		return result
	}
	defer func() { _ = database.Close() }()

	if err := database.Conn().PingContext(ctx); err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:   "ping",
			Status:  StatusFail,
			Detail:  err.Error(),
			Fixable: stores.IsCorruptionError(err),
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "open",
		Status: StatusPass,
	})
	return result
}

// Fix backs up the damaged database files so a fresh database is
// created on the next open.
func (c *DatabaseCheck) Fix() error {
	return stores.RecoverFromCorruption(c.dataDir)
}
