package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"social-dashboard/infrastructure/configuration"
)

// NewPostgreSQLDB opens the retry log and delivery event database.
func NewPostgreSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Psql
	if cfg.Name == "" {
		return nil, errors.New("postgres database name not configured")
	}
	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port), Path: "/" + cfg.Name}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()

	db, err := sql.Open("postgres", u.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewRepositories opens the MySQL database backing report schedules through gorm.
func NewRepositories() (*gorm.DB, error) {
	cfg := configuration.C.Database.MySql
	if cfg.Name == "" {
		return nil, errors.New("mysql database name not configured")
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	return gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Warn),
		SkipDefaultTransaction: true,
	})
}

// NewMongoDb connects the document store client. The caller pings it.
func NewMongoDb(host, port, user, password, name string) (*mongo.Client, error) {
	if host == "" {
		return nil, errors.New("mongo host not configured")
	}
	u := &url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%s", host, port), Path: "/"}
	if user != "" {
		u.User = url.UserPassword(user, password)
		q := url.Values{}
		q.Set("authSource", "admin")
		u.RawQuery = q.Encode()
	}
	opts := options.Client().
		ApplyURI(u.String()).
		SetAppName(name).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)
	return mongo.Connect(opts)
}
