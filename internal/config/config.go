package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации voxel-core.
// Отсутствующие секции заполняются значениями по умолчанию.
type Config struct {
	Codec   CodecConfig   `yaml:"codec"`
	Bake    BakeConfig    `yaml:"bake"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// CodecConfig настройки чтения/записи файлов .3zh
type CodecConfig struct {
	AllowLegacy  bool `yaml:"allow_legacy"`
	MaxGridCells int  `yaml:"max_grid_cells"` // защита от гигантских сеток в повреждённых файлах
}

// BakeConfig настройки кеша запечённых файлов
type BakeConfig struct {
	Backend    string        `yaml:"backend"` // "badger", "redis", "file", "memory" или "none"
	BadgerPath string        `yaml:"badger_path"`
	FileDir    string        `yaml:"file_dir"`
	RedisURL   string        `yaml:"redis_url"`
	RedisDB    int           `yaml:"redis_db"`
	RedisTTL   time.Duration `yaml:"redis_ttl"`
}

// MetricsConfig настройки Prometheus
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// DefaultMaxGridCells - 512^3 вокселей
const DefaultMaxGridCells = 512 * 512 * 512

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			AllowLegacy:  true,
			MaxGridCells: DefaultMaxGridCells,
		},
		Bake: BakeConfig{
			Backend:    "badger",
			BadgerPath: "cache/baked",
			FileDir:    "cache/baked-files",
			RedisTTL:   24 * time.Hour,
		},
		Log: LogConfig{
			ConsoleLevel: "info",
			FileLevel:    "debug",
		},
	}
}

// GetMetricsPort возвращает порт метрик с поддержкой fallback значений
func (m *MetricsConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(m.Port, "VOXEL_METRICS_PORT", 2112)
}

// GetRedisURL возвращает адрес Redis: config -> env -> default
func (b *BakeConfig) GetRedisURL() string {
	if b.RedisURL != "" {
		return b.RedisURL
	}
	if env := os.Getenv("VOXEL_REDIS_URL"); env != "" {
		return env
	}
	return "localhost:6379"
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG; если и он пуст,
// возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.Codec.MaxGridCells <= 0 {
		cfg.Codec.MaxGridCells = DefaultMaxGridCells
	}

	return cfg, nil
}
