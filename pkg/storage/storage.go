package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airepert/airepert/pkg/types"
	"github.com/levenlabs/go-lflag"
)

var (
	ErrLoadNotFound = errors.New("load not found")
	// ErrPersistence wraps every failed write.
	ErrPersistence = errors.New("persistence error")
)

// Database defines the interface for persisting loads, telemetry and the
// decision audit trail of a single site.
type Database interface {
	// Loads
	ListLoads(ctx context.Context) ([]types.Load, error)
	GetLoads(ctx context.Context, ids []int64) ([]types.Load, error)
	CreateLoad(ctx context.Context, load types.Load) (types.Load, error)
	SetLoadState(ctx context.Context, id int64, on bool) error

	// Telemetry
	InsertMeasurement(ctx context.Context, m types.Measurement) error
	// GetLatestProduction returns nil if nothing was recorded yet.
	GetLatestProduction(ctx context.Context) (*types.ProductionReading, error)
	// GetLatestBattery returns nil if nothing was recorded yet.
	GetLatestBattery(ctx context.Context) (*types.BatteryReading, error)

	// Audit
	InsertAudit(ctx context.Context, rec types.AuditRecord) error
	GetAuditHistory(ctx context.Context, start, end time.Time) ([]types.AuditRecord, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, postgres, sqlite)")
	siteID := lflag.String("site-id", "default", "Site the loads and telemetry belong to")

	var p struct{ Database }

	fs := configuredFirestore()
	sql := configuredSQL()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			fs.siteID = *siteID
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "postgres", "sqlite":
			sql.driver = *provider
			sql.siteID = *siteID
			if err := sql.Validate(); err != nil {
				panic(fmt.Sprintf("sql validation failed: %v", err))
			}
			p.Database = sql
			if err := sql.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("sql init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
