package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"o2oprofit/internal/model"
)

// ErrConfigNotFound 配置项不存在
var ErrConfigNotFound = errors.New("config key not found")

// 计算口径在数据库中的键（PATCH /config 的持久化结果）
const calcConfigKey = "calc_config"

// GetConfig 获取配置项
func (s *Store) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, key)
		}
		return "", err
	}
	return value, nil
}

// SetConfig 设置配置项
func (s *Store) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`, key, value, value)
	return err
}

// LoadCalcConfig 读取保存的计算口径，未保存时返回 ErrConfigNotFound
func (s *Store) LoadCalcConfig() (model.CalcConfig, error) {
	var cfg model.CalcConfig
	raw, err := s.GetConfig(calcConfigKey)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode calc config: %w", err)
	}
	return cfg, nil
}

// SaveCalcConfig 保存计算口径
func (s *Store) SaveCalcConfig(cfg model.CalcConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return s.SetConfig(calcConfigKey, string(b))
}
