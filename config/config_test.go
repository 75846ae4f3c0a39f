package config

import (
	"errors"
	"testing"

	"flowai-ict-bot/internal/analysis"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default configuration must validate, got %v", err)
	}
}

func TestValidateRejectsBadICTParams(t *testing.T) {
	cfg := defaults()
	cfg.ICTConfig.SwingLookback = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}
	if !errors.Is(err, analysis.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidateRejectsBadScannerTimeframe(t *testing.T) {
	cfg := defaults()
	cfg.ScannerConfig.Timeframe = "7m"

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown scanner timeframe")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ICT_SWING_LOOKBACK_PERIODS", "7")
	t.Setenv("FVG_THRESHOLD", "0.25")
	t.Setenv("HTF_TIMEFRAMES", "1d,4h,1h")
	t.Setenv("SCANNER_SYMBOLS", "solusdt, bnbusdt")
	t.Setenv("HTF_BIAS_CONSENSUS_REQUIRED", "true")

	cfg := defaults()
	applyEnvOverrides(cfg)

	if cfg.ICTConfig.SwingLookback != 7 {
		t.Errorf("Expected swing lookback 7, got %d", cfg.ICTConfig.SwingLookback)
	}
	if cfg.ICTConfig.FVGThresholdPercent != 0.25 {
		t.Errorf("Expected FVG threshold 0.25, got %f", cfg.ICTConfig.FVGThresholdPercent)
	}
	if len(cfg.ICTConfig.HTFTimeframes) != 3 {
		t.Errorf("Expected 3 HTF timeframes, got %d", len(cfg.ICTConfig.HTFTimeframes))
	}
	if !cfg.ICTConfig.ConsensusRequired {
		t.Error("Expected consensus required true")
	}
	if len(cfg.ScannerConfig.Symbols) != 2 || cfg.ScannerConfig.Symbols[0] != "SOLUSDT" {
		t.Errorf("Expected normalized symbols, got %v", cfg.ScannerConfig.Symbols)
	}
}

func TestRetracementLevelListParsing(t *testing.T) {
	t.Setenv("ICT_PD_RETRACEMENT_LEVELS", "0.5, 0.705")

	cfg := defaults()
	applyEnvOverrides(cfg)

	if len(cfg.ICTConfig.PDRetracementLevels) != 2 || cfg.ICTConfig.PDRetracementLevels[1] != 0.705 {
		t.Errorf("Expected parsed levels [0.5 0.705], got %v", cfg.ICTConfig.PDRetracementLevels)
	}
}
