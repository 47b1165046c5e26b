package db

import (
	"fmt"
	"net"
	"time"

	"playlister/config"
	"playlister/logger"
	"playlister/repository"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// mysqlDSN builds the MySQL DSN with the driver's own formatter so that
// passwords containing special characters survive.
func mysqlDSN(cfg *config.Config) string {
	mc := mysqldriver.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func postgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
}

// dialector picks the GORM dialector for the configured vendor.
func dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBVendor {
	case config.VendorMySQL:
		return mysql.Open(mysqlDSN(cfg)), nil
	case config.VendorPostgres:
		return postgres.Open(postgresDSN(cfg)), nil
	case config.VendorSQLite:
		return sqlite.Open(cfg.SQLitePath + "?_busy_timeout=5000"), nil
	default:
		return nil, fmt.Errorf("unsupported relational vendor %q", cfg.DBVendor)
	}
}

// ConnectGormDB 建立 GORM 数据库连接
func ConnectGormDB(cfg *config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	return OpenGorm(d, cfg.DBVendor == config.VendorSQLite, cfg.LogLevel == "debug")
}

// newGormLogger routes GORM's log lines to w. Missing rows are an expected
// outcome of lookups and are not reported.
func newGormLogger(w gormlogger.Writer, verbose bool) gormlogger.Interface {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// OpenGorm opens a GORM connection on an explicit dialector. SQLite is limited
// to a single connection since it serializes writers anyway.
func OpenGorm(d gorm.Dialector, singleConn bool, verbose bool) (*gorm.DB, error) {
	gdb, err := gorm.Open(d, &gorm.Config{
		Logger:         newGormLogger(logger.StdLog(), verbose),
		TranslateError: true,
		// 禁用外键约束
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	// 获取底层的 sql.DB 并配置连接池
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if singleConn {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	logger.Info("Connected to the database with GORM", logger.String("dialect", d.Name()))
	return gdb, nil
}

// CloseGormDB 关闭 GORM 数据库连接
func CloseGormDB(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate 自动迁移所有表结构
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(repository.GormModels()...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	logger.Info("Models migrated successfully with GORM")
	return nil
}
