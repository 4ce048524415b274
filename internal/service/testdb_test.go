package service

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"custody-core/internal/model"
	"custody-core/pkg/database"
)

// testDB 连接真实 Postgres 的用例辅助，和 tests/integration 一样缺环境就跳过。
// 运行方式:
//
//	CUSTODY_TEST_DSN="host=localhost user=custody_user password=custody_password dbname=custody_test port=5432 sslmode=disable" \
//	  go test ./internal/service/...
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("CUSTODY_TEST_DSN")
	if dsn == "" {
		t.Skip("未设置 CUSTODY_TEST_DSN，跳过数据库用例")
	}
	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		t.Skipf("连接测试库失败: %v", err)
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("初始化表结构失败: %v", err)
	}
	return db
}

var testUserSeq atomic.Uint64

// testUserID 每个用例独立的用户，余额和流水互不干扰
func testUserID() uint64 {
	return uint64(time.Now().UnixNano()) + testUserSeq.Add(1)
}
