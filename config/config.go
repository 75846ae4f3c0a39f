package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"flowai-ict-bot/internal/analysis"
	"flowai-ict-bot/internal/market"
)

type Config struct {
	BinanceConfig BinanceConfig   `json:"binance"`
	ICTConfig     analysis.Config `json:"ict"`
	ScannerConfig ScannerConfig   `json:"scanner"`
	ServerConfig  ServerConfig    `json:"server"`
	RedisConfig   RedisConfig     `json:"redis"`
	LoggingConfig LoggingConfig   `json:"logging"`
}

type BinanceConfig struct {
	BaseURL      string `json:"base_url"`
	WSBaseURL    string `json:"ws_base_url"`
	CandleLimit  int    `json:"candle_limit"`     // Candles fetched per timeframe
	HTFCandles   int    `json:"htf_candle_limit"` // Candles fetched per higher timeframe
	StreamKlines bool   `json:"stream_klines"`    // Keep series live over websocket
}

type ScannerConfig struct {
	Enabled      bool     `json:"enabled"`
	Symbols      []string `json:"symbols"`
	Timeframe    string   `json:"timeframe"`     // Lower timeframe analyzed in full
	ScanInterval int      `json:"scan_interval"` // Seconds between scans
	WorkerCount  int      `json:"worker_count"`
	CacheTTL     int      `json:"cache_ttl"` // Seconds
}

type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	TTL      int    `json:"ttl"` // Seconds, candle cache expiry
}

type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

// Load reads config.json when present, applies environment overrides and
// validates. Invalid ICT parameters fail here, before any candle data is
// processed.
func Load() (*Config, error) {
	cfg := defaults()

	if path := getEnvOrDefault("CONFIG_FILE", "config.json"); fileExists(path) {
		loaded, err := loadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects unusable configuration. ICT parameter validation is
// delegated to the analysis package.
func (c *Config) Validate() error {
	if err := c.ICTConfig.Validate(); err != nil {
		return err
	}
	if !market.Timeframe(c.ScannerConfig.Timeframe).Valid() {
		return fmt.Errorf("invalid scanner timeframe %q", c.ScannerConfig.Timeframe)
	}
	if c.ScannerConfig.ScanInterval < 1 {
		return fmt.Errorf("scan_interval must be >= 1 second, got %d", c.ScannerConfig.ScanInterval)
	}
	if c.ScannerConfig.WorkerCount < 1 {
		return fmt.Errorf("worker_count must be >= 1, got %d", c.ScannerConfig.WorkerCount)
	}
	if c.BinanceConfig.CandleLimit < 3 {
		return fmt.Errorf("candle_limit must be >= 3, got %d", c.BinanceConfig.CandleLimit)
	}
	if c.ServerConfig.Enabled && (c.ServerConfig.Port < 1 || c.ServerConfig.Port > 65535) {
		return fmt.Errorf("invalid server port %d", c.ServerConfig.Port)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		BinanceConfig: BinanceConfig{
			BaseURL:      "https://api.binance.com",
			WSBaseURL:    "wss://stream.binance.com:9443",
			CandleLimit:  500,
			HTFCandles:   1000,
			StreamKlines: false,
		},
		ICTConfig: analysis.DefaultConfig(),
		ScannerConfig: ScannerConfig{
			Enabled:      true,
			Symbols:      []string{"BTCUSDT", "ETHUSDT"},
			Timeframe:    string(market.TF1h),
			ScanInterval: 300,
			WorkerCount:  4,
			CacheTTL:     120,
		},
		ServerConfig: ServerConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
		},
		RedisConfig: RedisConfig{
			Enabled: false,
			Address: "localhost:6379",
			TTL:     300,
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.BinanceConfig.BaseURL = getEnvOrDefault("BINANCE_BASE_URL", cfg.BinanceConfig.BaseURL)
	cfg.BinanceConfig.WSBaseURL = getEnvOrDefault("BINANCE_WS_BASE_URL", cfg.BinanceConfig.WSBaseURL)
	cfg.BinanceConfig.CandleLimit = getEnvIntOrDefault("BINANCE_CANDLE_LIMIT", cfg.BinanceConfig.CandleLimit)
	cfg.BinanceConfig.HTFCandles = getEnvIntOrDefault("HTF_LOOKBACK_CANDLES", cfg.BinanceConfig.HTFCandles)
	cfg.BinanceConfig.StreamKlines = getEnvBoolOrDefault("BINANCE_STREAM_KLINES", cfg.BinanceConfig.StreamKlines)

	// ICT parameters keep the environment names of the original bot so
	// existing deployments carry over.
	cfg.ICTConfig.SwingLookback = getEnvIntOrDefault("ICT_SWING_LOOKBACK_PERIODS", cfg.ICTConfig.SwingLookback)
	cfg.ICTConfig.MSSSwingLookback = getEnvIntOrDefault("ICT_MSS_SWING_LOOKBACK", cfg.ICTConfig.MSSSwingLookback)
	cfg.ICTConfig.MSSBreakPolicy = analysis.BreakPolicy(getEnvOrDefault("ICT_MSS_BREAK_POLICY", string(cfg.ICTConfig.MSSBreakPolicy)))
	cfg.ICTConfig.OBLookbackForMSS = getEnvIntOrDefault("ICT_OB_LOOKBACK_FOR_MSS", cfg.ICTConfig.OBLookbackForMSS)
	cfg.ICTConfig.OBMinBodyRatio = getEnvFloatOrDefault("ICT_OB_MIN_BODY_RATIO", cfg.ICTConfig.OBMinBodyRatio)
	cfg.ICTConfig.FVGThresholdPercent = getEnvFloatOrDefault("FVG_THRESHOLD", cfg.ICTConfig.FVGThresholdPercent)
	cfg.ICTConfig.PDLookback = getEnvIntOrDefault("ICT_PD_ARRAY_LOOKBACK_PERIODS", cfg.ICTConfig.PDLookback)
	cfg.ICTConfig.PDRetracementLevels = getEnvFloatListOrDefault("ICT_PD_RETRACEMENT_LEVELS", cfg.ICTConfig.PDRetracementLevels)
	cfg.ICTConfig.SweepMSSLookback = getEnvIntOrDefault("ICT_SWEEP_MSS_LOOKBACK_CANDLES", cfg.ICTConfig.SweepMSSLookback)
	cfg.ICTConfig.SweepTargetsFVG = getEnvBoolOrDefault("ICT_SWEEP_RETRACEMENT_TARGET_FVG", cfg.ICTConfig.SweepTargetsFVG)
	cfg.ICTConfig.ConsensusRequired = getEnvBoolOrDefault("HTF_BIAS_CONSENSUS_REQUIRED", cfg.ICTConfig.ConsensusRequired)
	if tfs := os.Getenv("HTF_TIMEFRAMES"); tfs != "" {
		var parsed []market.Timeframe
		for _, tf := range strings.Split(tfs, ",") {
			parsed = append(parsed, market.Timeframe(strings.TrimSpace(tf)))
		}
		cfg.ICTConfig.HTFTimeframes = parsed
	}

	cfg.ScannerConfig.Enabled = getEnvBoolOrDefault("SCANNER_ENABLED", cfg.ScannerConfig.Enabled)
	if symbols := os.Getenv("SCANNER_SYMBOLS"); symbols != "" {
		cfg.ScannerConfig.Symbols = nil
		for _, s := range strings.Split(symbols, ",") {
			cfg.ScannerConfig.Symbols = append(cfg.ScannerConfig.Symbols, strings.ToUpper(strings.TrimSpace(s)))
		}
	}
	cfg.ScannerConfig.Timeframe = getEnvOrDefault("SCANNER_TIMEFRAME", cfg.ScannerConfig.Timeframe)
	cfg.ScannerConfig.ScanInterval = getEnvIntOrDefault("SCANNER_SCAN_INTERVAL", cfg.ScannerConfig.ScanInterval)
	cfg.ScannerConfig.WorkerCount = getEnvIntOrDefault("SCANNER_WORKER_COUNT", cfg.ScannerConfig.WorkerCount)
	cfg.ScannerConfig.CacheTTL = getEnvIntOrDefault("SCANNER_CACHE_TTL", cfg.ScannerConfig.CacheTTL)

	cfg.ServerConfig.Enabled = getEnvBoolOrDefault("SERVER_ENABLED", cfg.ServerConfig.Enabled)
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", cfg.ServerConfig.Port)

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.TTL = getEnvIntOrDefault("REDIS_TTL", cfg.RedisConfig.TTL)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
}

// RedisTTL returns the candle cache expiry as a duration
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisConfig.TTL) * time.Second
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := defaults()
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvFloatListOrDefault(key string, defaultValue []float64) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var levels []float64
	for _, part := range strings.Split(value, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return defaultValue
		}
		levels = append(levels, f)
	}
	return levels
}
