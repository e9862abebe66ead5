package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Recorder persists snapshots.
type Recorder interface {
	Record(ctx context.Context, snaps []Snapshot) error
	History(ctx context.Context, wrapper string, limit int) ([]SnapshotRecord, error)
}

// NoopRecorder drops everything.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, []Snapshot) error { return nil }

func (NoopRecorder) History(context.Context, string, int) ([]SnapshotRecord, error) {
	return nil, nil
}

// SnapshotRecord is the persisted row. Decimals are stored as strings so
// nothing is lost to float rounding.
type SnapshotRecord struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID              uuid.UUID `gorm:"type:uuid;index"`
	Wrapper            string    `gorm:"index:idx_wrapper_taken,priority:1"`
	Contract           string
	TakenAt            time.Time `gorm:"index:idx_wrapper_taken,priority:2"`
	LSDExchangeRate    string
	LSDBalance         string
	Supply             string
	ExchangeRate       string
	ExpectedRate       string
	LSDRate            string
	MaxDecompoundRatio string
	RatioSum           string
	TotalSeconds       uint64
	LastDecompound     time.Time
	PendingLSD         string
	PendingLuna        string
	Slashed            bool
	Blocked            string
	CreatedAt          time.Time
}

func (SnapshotRecord) TableName() string { return "wrapper_snapshots" }

func newRecord(s Snapshot) SnapshotRecord {
	maxRatio := ""
	if s.MaxDecompoundRatio != nil {
		maxRatio = s.MaxDecompoundRatio.String()
	}
	return SnapshotRecord{
		ID:                 uuid.New(),
		RunID:              s.RunID,
		Wrapper:            s.Wrapper,
		Contract:           s.Contract,
		TakenAt:            s.TakenAt.UTC(),
		LSDExchangeRate:    s.LSDExchangeRate.String(),
		LSDBalance:         s.LSDBalance.String(),
		Supply:             s.Supply.String(),
		ExchangeRate:       s.ExchangeRate.String(),
		ExpectedRate:       s.ExpectedRate.String(),
		LSDRate:            s.LSDRate.String(),
		MaxDecompoundRatio: maxRatio,
		RatioSum:           s.RatioSum.String(),
		TotalSeconds:       s.TotalSeconds,
		LastDecompound:     s.LastDecompound.UTC(),
		PendingLSD:         s.PendingLSD.String(),
		PendingLuna:        s.PendingLuna.String(),
		Slashed:            s.Slashed,
		Blocked:            s.Blocked,
	}
}

// GormRecorder stores snapshots in SQLite or Postgres.
type GormRecorder struct {
	db *gorm.DB
}

// OpenDatabase opens dsn with the driver it names: postgres:// and
// postgresql:// URLs use Postgres, anything else is a SQLite path or DSN.
func OpenDatabase(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("monitor: database dsn required")
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if strings.HasPrefix(trimmed, "postgres://") || strings.HasPrefix(trimmed, "postgresql://") {
		return gorm.Open(postgres.Open(trimmed), cfg)
	}
	return gorm.Open(sqlite.Open(trimmed), cfg)
}

// NewGormRecorder migrates the snapshot table on db.
func NewGormRecorder(db *gorm.DB) (*GormRecorder, error) {
	if err := db.AutoMigrate(&SnapshotRecord{}); err != nil {
		return nil, fmt.Errorf("monitor: migrate snapshots: %w", err)
	}
	return &GormRecorder{db: db}, nil
}

func (r *GormRecorder) Record(ctx context.Context, snaps []Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	rows := make([]SnapshotRecord, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, newRecord(s))
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// History returns the latest snapshots of wrapper, newest first.
func (r *GormRecorder) History(ctx context.Context, wrapper string, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []SnapshotRecord
	err := r.db.WithContext(ctx).
		Where("wrapper = ?", wrapper).
		Order("taken_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
