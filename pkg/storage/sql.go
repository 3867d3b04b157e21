package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/airepert/airepert/pkg/types"
	"github.com/levenlabs/go-lflag"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLProvider implements the Database interface on a relational database
// through gorm. Both PostgreSQL and SQLite are supported.
type SQLProvider struct {
	db     *gorm.DB
	driver string
	dsn    string
	siteID string
}

type loadRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	SiteID      string `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	Class       string `gorm:"not null"`
	RatedPowerW float64
	On          bool `gorm:"column:is_on"`
}

func (loadRow) TableName() string { return "loads" }

type productionRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	SiteID      string    `gorm:"index:idx_production_site_ts"`
	Timestamp   time.Time `gorm:"column:recorded_at;index:idx_production_site_ts"`
	ProductionW float64
}

func (productionRow) TableName() string { return "production_readings" }

type batteryRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	SiteID    string    `gorm:"index:idx_battery_site_ts"`
	Timestamp time.Time `gorm:"column:recorded_at;index:idx_battery_site_ts"`
	SOCPct    float64
	VoltageV  float64
	CurrentA  float64
}

func (batteryRow) TableName() string { return "battery_readings" }

type consumptionRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	SiteID    string    `gorm:"index:idx_consumption_site_ts"`
	Timestamp time.Time `gorm:"column:recorded_at;index:idx_consumption_site_ts"`
	LoadID    int64     `gorm:"index"`
	Watts     float64
}

func (consumptionRow) TableName() string { return "consumption_readings" }

type auditRow struct {
	ID        string    `gorm:"primaryKey"`
	SiteID    string    `gorm:"index:idx_audit_site_ts"`
	Timestamp time.Time `gorm:"column:recorded_at;index:idx_audit_site_ts"`
	Action    string
	Target    string
	Reason    string
	ActorID   int64
}

func (auditRow) TableName() string { return "audit_records" }

func (r loadRow) load() types.Load {
	return types.Load{
		ID:          r.ID,
		Name:        r.Name,
		Class:       types.LoadClass(r.Class),
		RatedPowerW: r.RatedPowerW,
		On:          r.On,
	}
}

// configuredSQL sets up the SQL provider.
// It registers flags for configuration.
func configuredSQL() *SQLProvider {
	dsn := lflag.String("sql-dsn", "", "DSN for the postgres or sqlite storage provider")

	s := &SQLProvider{}

	lflag.Do(func() {
		s.dsn = *dsn
	})

	return s
}

// NewSQLProvider creates an SQL provider without flags, mostly for tests and
// tools.
func NewSQLProvider(driver, dsn, siteID string) *SQLProvider {
	return &SQLProvider{driver: driver, dsn: dsn, siteID: siteID}
}

// Validate checks if the provider is properly configured.
func (s *SQLProvider) Validate() error {
	if s.dsn == "" {
		return errors.New("sql-dsn cannot be empty")
	}
	if s.siteID == "" {
		return errors.New("site id cannot be empty")
	}
	switch s.driver {
	case "postgres", "sqlite":
		return nil
	default:
		return fmt.Errorf("unsupported sql driver: %s", s.driver)
	}
}

// Init opens the database and migrates the schema.
func (s *SQLProvider) Init(ctx context.Context) error {
	var dialector gorm.Dialector
	switch s.driver {
	case "postgres":
		dialector = postgres.Open(s.dsn)
	case "sqlite":
		dialector = sqlite.Open(s.dsn)
	default:
		return fmt.Errorf("unsupported sql driver: %s", s.driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(
			slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", s.driver, err)
	}
	if err := db.WithContext(ctx).AutoMigrate(
		&loadRow{},
		&productionRow{},
		&batteryRow{},
		&consumptionRow{},
		&auditRow{},
	); err != nil {
		return fmt.Errorf("failed to migrate %s database: %w", s.driver, err)
	}
	s.db = db
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLProvider) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLProvider) site(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("site_id = ?", s.siteID)
}

// ListLoads returns every load ordered by id.
func (s *SQLProvider) ListLoads(ctx context.Context) ([]types.Load, error) {
	var rows []loadRow
	if err := s.site(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}
	loads := make([]types.Load, 0, len(rows))
	for _, r := range rows {
		loads = append(loads, r.load())
	}
	return loads, nil
}

// GetLoads returns the loads with the given ids, ignoring unknown ids.
func (s *SQLProvider) GetLoads(ctx context.Context, ids []int64) ([]types.Load, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []loadRow
	if err := s.site(ctx).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get loads: %w", err)
	}
	var loads []types.Load
	for _, r := range rows {
		loads = append(loads, r.load())
	}
	return loads, nil
}

// CreateLoad stores a new load, assigning its id.
func (s *SQLProvider) CreateLoad(ctx context.Context, load types.Load) (types.Load, error) {
	row := loadRow{
		SiteID:      s.siteID,
		Name:        load.Name,
		Class:       string(load.Class),
		RatedPowerW: load.RatedPowerW,
		On:          load.On,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return types.Load{}, fmt.Errorf("%w: failed to create load: %w", ErrPersistence, err)
	}
	return row.load(), nil
}

// SetLoadState switches a load on or off.
func (s *SQLProvider) SetLoadState(ctx context.Context, id int64, on bool) error {
	res := s.site(ctx).Model(&loadRow{}).Where("id = ?", id).Update("is_on", on)
	if res.Error != nil {
		return fmt.Errorf("%w: failed to set load state: %w", ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		// an unchanged row also reports 0 on some drivers
		var count int64
		if err := s.site(ctx).Model(&loadRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check load: %w", err)
		}
		if count == 0 {
			return ErrLoadNotFound
		}
	}
	return nil
}

// InsertMeasurement stores all readings of a measurement in one transaction.
func (s *SQLProvider) InsertMeasurement(ctx context.Context, m types.Measurement) error {
	if m.Timestamp.IsZero() {
		return errors.New("measurement missing timestamp")
	}
	ts := m.Timestamp.UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&productionRow{
			SiteID:      s.siteID,
			Timestamp:   ts,
			ProductionW: m.Production.ProductionW,
		}).Error; err != nil {
			return err
		}
		if err := tx.Create(&batteryRow{
			SiteID:    s.siteID,
			Timestamp: ts,
			SOCPct:    m.Battery.SOCPct,
			VoltageV:  m.Battery.VoltageV,
			CurrentA:  m.Battery.CurrentA,
		}).Error; err != nil {
			return err
		}
		if len(m.Consumptions) == 0 {
			return nil
		}
		rows := make([]consumptionRow, 0, len(m.Consumptions))
		for _, c := range m.Consumptions {
			rows = append(rows, consumptionRow{
				SiteID:    s.siteID,
				Timestamp: ts,
				LoadID:    c.LoadID,
				Watts:     c.Watts,
			})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("%w: failed to insert measurement: %w", ErrPersistence, err)
	}
	return nil
}

// GetLatestProduction retrieves the most recent production reading.
func (s *SQLProvider) GetLatestProduction(ctx context.Context) (*types.ProductionReading, error) {
	var row productionRow
	err := s.site(ctx).Order("recorded_at desc").Order("id desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest production: %w", err)
	}
	return &types.ProductionReading{
		Timestamp:   row.Timestamp,
		ProductionW: row.ProductionW,
	}, nil
}

// GetLatestBattery retrieves the most recent battery reading.
func (s *SQLProvider) GetLatestBattery(ctx context.Context) (*types.BatteryReading, error) {
	var row batteryRow
	err := s.site(ctx).Order("recorded_at desc").Order("id desc").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest battery: %w", err)
	}
	return &types.BatteryReading{
		Timestamp: row.Timestamp,
		SOCPct:    row.SOCPct,
		VoltageV:  row.VoltageV,
		CurrentA:  row.CurrentA,
	}, nil
}

// InsertAudit appends an audit record.
func (s *SQLProvider) InsertAudit(ctx context.Context, rec types.AuditRecord) error {
	row := auditRow{
		ID:        rec.ID,
		SiteID:    s.siteID,
		Timestamp: rec.Timestamp.UTC(),
		Action:    rec.Action,
		Target:    rec.Target,
		Reason:    rec.Reason,
		ActorID:   rec.ActorID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: failed to insert audit record: %w", ErrPersistence, err)
	}
	return nil
}

// GetAuditHistory retrieves audit records within [start, end).
func (s *SQLProvider) GetAuditHistory(ctx context.Context, start, end time.Time) ([]types.AuditRecord, error) {
	var rows []auditRow
	err := s.site(ctx).
		Where("recorded_at >= ? AND recorded_at < ?", start.UTC(), end.UTC()).
		Order("recorded_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	recs := make([]types.AuditRecord, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, types.AuditRecord{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Action:    r.Action,
			Target:    r.Target,
			Reason:    r.Reason,
			ActorID:   r.ActorID,
		})
	}
	return recs, nil
}
