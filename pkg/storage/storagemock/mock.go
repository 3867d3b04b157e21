package storagemock

import (
	"context"
	"time"

	"github.com/airepert/airepert/pkg/storage"
	"github.com/airepert/airepert/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) ListLoads(ctx context.Context) ([]types.Load, error) {
	args := m.Called(ctx)
	if l := args.Get(0); l != nil {
		return l.([]types.Load), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) GetLoads(ctx context.Context, ids []int64) ([]types.Load, error) {
	args := m.Called(ctx, ids)
	if l := args.Get(0); l != nil {
		return l.([]types.Load), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) CreateLoad(ctx context.Context, load types.Load) (types.Load, error) {
	args := m.Called(ctx, load)
	return args.Get(0).(types.Load), args.Error(1)
}

func (m *MockDatabase) SetLoadState(ctx context.Context, id int64, on bool) error {
	args := m.Called(ctx, id, on)
	return args.Error(0)
}

func (m *MockDatabase) InsertMeasurement(ctx context.Context, measurement types.Measurement) error {
	args := m.Called(ctx, measurement)
	return args.Error(0)
}

func (m *MockDatabase) GetLatestProduction(ctx context.Context) (*types.ProductionReading, error) {
	args := m.Called(ctx)
	if p := args.Get(0); p != nil {
		return p.(*types.ProductionReading), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) GetLatestBattery(ctx context.Context) (*types.BatteryReading, error) {
	args := m.Called(ctx)
	if b := args.Get(0); b != nil {
		return b.(*types.BatteryReading), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) InsertAudit(ctx context.Context, rec types.AuditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockDatabase) GetAuditHistory(ctx context.Context, start, end time.Time) ([]types.AuditRecord, error) {
	args := m.Called(ctx, start, end)
	if r := args.Get(0); r != nil {
		return r.([]types.AuditRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
