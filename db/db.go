package db

import (
	"fmt"

	"equiplend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectDB opens Postgres at dsn and migrates the schema.
func ConnectDB(dsn string) (*gorm.DB, error) {
	return Open(postgres.Open(dsn))
}

// Open works with any dialector; tests pass sqlite.
func Open(d gorm.Dialector) (*gorm.DB, error) {
	conn, err := gorm.Open(d, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Item{}, &models.LoanRequest{}, &models.RequestEvent{}, &models.Invite{}); err != nil {
		return err
	}

	for _, table := range []string{models.RequestTable, models.RequestEventTable} {
		if err := addSeqColumn(db, table); err != nil {
			return err
		}
	}

	// 未结束的申请（PENDING/APPROVED）按物品查找：删除保护与统计
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_outstanding_item
	  ON %s (item_id)
	  WHERE status IN ('PENDING', 'APPROVED');
	`, models.RequestTable, models.RequestTable)).Error; err != nil {
		return err
	}

	// 我的申请：按时间倒序
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_user_requested_desc
	  ON %s (user_id, request_date DESC, seq DESC);
	`, models.RequestTable, models.RequestTable)).Error; err != nil {
		return err
	}

	return nil
}

// addSeqColumn 给 table 加一个单调递增的 seq 列。
// uuid 主键没有顺序，时间戳又可能相同，列表靠它稳定排序。
// Postgres 用 BIGSERIAL；SQLite 不支持非主键自增，用 rowid + 触发器。
func addSeqColumn(db *gorm.DB, table string) error {
	if db.Migrator().HasColumn(table, "seq") {
		return nil
	}
	var stmts []string
	switch db.Dialector.Name() {
	case "postgres":
		stmts = []string{
			fmt.Sprintf(`ALTER TABLE %s ADD COLUMN seq BIGSERIAL`, table),
		}
	default:
		stmts = []string{
			fmt.Sprintf(`ALTER TABLE %s ADD COLUMN seq INTEGER`, table),
			fmt.Sprintf(`UPDATE %s SET seq = rowid`, table),
			fmt.Sprintf(`
			  CREATE TRIGGER IF NOT EXISTS %s_seq AFTER INSERT ON %s
			  BEGIN
			    UPDATE %s SET seq = NEW.rowid WHERE rowid = NEW.rowid;
			  END;
			`, table, table, table),
		}
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return fmt.Errorf("add seq to %s: %w", table, err)
		}
	}
	return nil
}
