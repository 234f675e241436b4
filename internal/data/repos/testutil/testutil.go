package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/reai/reai-backend/internal/data/db"
	"github.com/reai/reai-backend/internal/platform/logger"
	"github.com/reai/reai-backend/internal/types"
)

var (
	dbSeq uint64

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a fresh in-memory SQLite database, migrated with the full schema.
// A single pooled connection keeps the named memory database alive and
// serializes writes, which SQLite requires.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	n := atomic.AddUint64(&dbSeq, 1)
	dsn := fmt.Sprintf("file:reai_test_%d?mode=memory&cache=shared", n)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("failed to access test db pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	tb.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	return gdb
}

func SeedCompany(tb testing.TB, ctx context.Context, tx *gorm.DB, appID string) *types.FinancialCompany {
	tb.Helper()
	c := &types.FinancialCompany{
		Name:     "국민은행",
		AppID:    appID,
		Category: "banking",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed company: %v", err)
	}
	return c
}

func SeedDepartment(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, keywords []string) *types.Department {
	tb.Helper()
	d := &types.Department{
		Name:        name,
		Description: name + " 담당 부서",
	}
	if err := d.SetKeywords(keywords); err != nil {
		tb.Fatalf("seed department keywords: %v", err)
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed department: %v", err)
	}
	return d
}

func SeedReview(tb testing.TB, ctx context.Context, tx *gorm.DB, companyID int64, content string) *types.Review {
	tb.Helper()
	r := &types.Review{
		CompanyID:  companyID,
		Content:    content,
		Rating:     5,
		Platform:   types.PlatformAppStore,
		ReviewDate: time.Now(),
		State:      types.ReviewStateUnprocessed,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed review: %v", err)
	}
	return r
}
