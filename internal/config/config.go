package config

import (
	"log"
	"os"
	"strconv"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
}

type BillzConfig struct {
	BaseURL        string
	SecretToken    string
	ShopIDs        string
	Currency       string
	PageLimit      int
	MaxPages       int
	RequestTimeout int // seconds, applied per page fetch
}

type AppConfig struct {
	Port  string
	Billz BillzConfig

	Postgres PostgresConfig
	Redis    RedisConfig
	S3       S3Config

	// SnapshotBackend selects where pipeline snapshots live: "local" or "s3".
	SnapshotBackend string
	DataDir         string

	ExportDir         string
	FilesPublicPrefix string
	ExternalURL       string

	JWTSecret string
	AdminName string

	RefreshIntervalMinutes int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q: %v", s, err)
	}
	return i
}

func mustBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("invalid bool value %q: %v", s, err)
	}
	return b
}

func Load() AppConfig {
	return AppConfig{
		Port: getenv("APP_PORT", "3001"),
		Billz: BillzConfig{
			BaseURL:        getenv("BILLZ_BASE_URL", "https://api-admin.billz.ai/v1"),
			SecretToken:    getenv("BILLZ_SECRET_KEY", ""),
			ShopIDs:        getenv("ALL_SHOPS", ""),
			Currency:       getenv("BILLZ_CURRENCY", "UZS"),
			PageLimit:      mustAtoi(getenv("BILLZ_PAGE_LIMIT", "500")),
			MaxPages:       mustAtoi(getenv("BILLZ_MAX_PAGES", "200")),
			RequestTimeout: mustAtoi(getenv("BILLZ_REQUEST_TIMEOUT", "30")),
		},
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     mustAtoi(getenv("PG_PORT", "5432")),
			User:     getenv("PG_USER", "root"),
			Password: getenv("PG_PASSWORD", "hello-world"),
			DBName:   getenv("PG_DB", "debtboard"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          mustAtoi(getenv("REDIS_DB", "0")),
			MaxRetries:  mustAtoi(getenv("REDIS_MAX_RETRIES", "5")),
			DialTimeout: mustAtoi(getenv("REDIS_DIAL_TIMEOUT", "10")),
			Timeout:     mustAtoi(getenv("REDIS_TIMEOUT", "5")),
			Prefix:      getenv("REDIS_PREFIX", "debtboard_"),
		},
		S3: S3Config{
			Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getenv("S3_ACCESS_KEY", "minio"),
			SecretAccessKey: getenv("S3_SECRET_KEY", "minio123"),
			Bucket:          getenv("S3_BUCKET", "snapshots"),
			Region:          getenv("S3_REGION", "us-east-1"),
			UseSSL:          mustBool(getenv("S3_USE_SSL", "false")),
			Prefix:          getenv("S3_PREFIX", ""),
		},
		SnapshotBackend:        getenv("SNAPSHOT_BACKEND", "local"),
		DataDir:                getenv("DATA_DIR", "./data"),
		ExportDir:              getenv("EXPORT_DIR", "./exports"),
		FilesPublicPrefix:      getenv("FILES_PUBLIC_PREFIX", "/files"),
		ExternalURL:            getenv("EXTERNAL_URL", ""),
		JWTSecret:              getenv("JWT_SECRET", ""),
		AdminName:              getenv("ADMIN_NAME", "admin"),
		RefreshIntervalMinutes: mustAtoi(getenv("REFRESH_INTERVAL_MINUTES", "60")),
	}
}
