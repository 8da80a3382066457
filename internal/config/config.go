package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"o2oprofit/internal/model"
)

// AppConfig 应用配置
type AppConfig struct {
	Server      ServerConfig      `toml:"server"`
	Data        DataConfig        `toml:"data"`
	Log         LogConfig         `toml:"log"`
	Calculation CalculationConfig `toml:"calculation"`
	Cache       CacheConfig       `toml:"cache"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// CalculationConfig 利润计算口径
type CalculationConfig struct {
	FeeMode            string   `toml:"fee_mode"`
	ExcludedCategories []string `toml:"excluded_categories"`
	MarketingSchema    string   `toml:"marketing_schema"`
	Workers            int      `toml:"workers"`
	// MarketingSchemas 自定义营销口径，版本号 → 字段列表；与内置版本同名时覆盖内置
	MarketingSchemas  map[string][]string `toml:"marketing_schemas"`
	AllowUnclassified []string            `toml:"allow_unclassified"`
	FieldOverrides    []model.FieldSpec   `toml:"field_overrides"`
}

// CacheConfig 计算结果缓存
type CacheConfig struct {
	TTLMinutes int `toml:"ttl_minutes"`
}

// TTL 缓存有效期
func (c CacheConfig) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	FileFound     bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Log: LogConfig{
			Level: "info",
		},
		Calculation: CalculationConfig{
			FeeMode:            string(model.FeeModeFallback),
			ExcludedCategories: model.DefaultExcludedCategories(),
			MarketingSchema:    model.LatestMarketingVersion,
			Workers:            1,
		},
		Cache: CacheConfig{
			TTLMinutes: 30,
		},
	}
}

// EngineConfig 转换为计算引擎配置
func (c *CalculationConfig) EngineConfig() (model.CalcConfig, error) {
	mode, err := model.ParseFeeMode(c.FeeMode)
	if err != nil {
		return model.CalcConfig{}, err
	}

	version := strings.TrimSpace(c.MarketingSchema)
	if version == "" {
		version = model.LatestMarketingVersion
	}
	schema, err := c.ResolveMarketingSchema(version)
	if err != nil {
		return model.CalcConfig{}, err
	}

	excluded := make([]string, len(c.ExcludedCategories))
	copy(excluded, c.ExcludedCategories)
	overrides := make([]model.FieldSpec, len(c.FieldOverrides))
	copy(overrides, c.FieldOverrides)

	return model.CalcConfig{
		ExcludedCategories: excluded,
		FeeMode:            mode,
		Marketing:          schema,
		FieldOverrides:     overrides,
		Workers:            c.Workers,
	}, nil
}

// ResolveMarketingSchema 按版本号查找营销口径，自定义优先
func (c *CalculationConfig) ResolveMarketingSchema(version string) (model.MarketingSchema, error) {
	if fields, ok := c.MarketingSchemas[version]; ok {
		out := make([]string, len(fields))
		copy(out, fields)
		return model.MarketingSchema{
			Version:           version,
			Fields:            out,
			AllowUnclassified: append([]string(nil), c.AllowUnclassified...),
		}, nil
	}
	schema, ok := model.BuiltinMarketingSchema(version)
	if !ok {
		return model.MarketingSchema{}, fmt.Errorf("unknown marketing schema: %q", version)
	}
	schema.AllowUnclassified = append([]string(nil), c.AllowUnclassified...)
	return schema, nil
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverMap, ok := raw["server"].(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func defaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	// .env 可选，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, LoadConfigInfo{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadFromFile(defaultConfigPath())
}

// LoadFromFile 从指定路径加载配置；文件不存在时使用默认配置
func LoadFromFile(path string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.FileFound = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	if err := applyEnv(config, &info); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖
func applyEnv(config *AppConfig, info *LoadConfigInfo) error {
	if v := os.Getenv("O2O_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid O2O_PORT %q: %w", v, err)
		}
		config.Server.Port = port
		info.PortSpecified = true
	}
	if v := os.Getenv("O2O_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("O2O_FEE_MODE"); v != "" {
		config.Calculation.FeeMode = v
	}
	if v := os.Getenv("O2O_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	return nil
}

// SaveToFile 保存配置到指定路径
func SaveToFile(config *AppConfig, path string) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir 确保数据目录存在；相对路径相对可执行文件目录
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	for _, subdir := range []string{"uploads", "exports"} {
		if err := os.MkdirAll(filepath.Join(dataDir, subdir), 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}
