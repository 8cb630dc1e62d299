package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-card-ledger/pkg/database"
)

// 儲存層種類
const (
	StorageLocal  = "local"
	StorageRemote = "remote"
)

type Config struct {
	Storage  Storage         `yaml:"storage"`
	Database database.Config `yaml:"database"`
	Server   Server          `yaml:"server"`
}

type Storage struct {
	Backend          string        `yaml:"backend"` // "local" 或 "remote"
	WALPath          string        `yaml:"wal_path"`
	CompactThreshold int           `yaml:"compact_threshold"`
	PollInterval     time.Duration `yaml:"poll_interval"`
}

type Server struct {
	GRPCAddr     string `yaml:"grpc_addr"`
	HTTPAddr     string `yaml:"http_addr"`
	AllowOrigins string `yaml:"allow_origins"`
}

// Load 讀取設定
//
// 順序: yaml 檔 -> .env -> 環境變數 -> 預設值
// yaml 檔或 .env 不存在時不視為錯誤
//
// 參數:
//
//	path: yaml 檔路徑
//	envFiles: 要載入的 .env 檔
func Load(path string, envFiles ...string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	for _, f := range envFiles {
		// godotenv.Load 不會覆蓋已存在的環境變數
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	setString(&c.Storage.Backend, "TRACKER_STORAGE")
	setString(&c.Storage.WALPath, "TRACKER_WAL_PATH")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.DBName, "DB_NAME")
	setString(&c.Server.GRPCAddr, "GRPC_ADDR")
	setString(&c.Server.HTTPAddr, "HTTP_ADDR")
}

// applyDefaults 補全 yaml 沒寫的設定
func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	if c.Storage.WALPath == "" {
		c.Storage.WALPath = "data/ledger.wal"
	}
	if c.Storage.CompactThreshold == 0 {
		c.Storage.CompactThreshold = 1000
	}
	if c.Storage.PollInterval == 0 {
		c.Storage.PollInterval = 2 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = database.DriverMySQL
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
}

// Validate 檢查設定值
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageLocal, StorageRemote:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Database.Driver {
	case database.DriverMySQL, database.DriverPostgres:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}
