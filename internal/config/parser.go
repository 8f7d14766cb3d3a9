package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"vm-placement/internal/generator"
	"vm-placement/internal/logging"
	"vm-placement/internal/model"

	"gopkg.in/yaml.v3"
)

var knownAlgorithms = map[string]bool{
	"ffd": true, "bfd": true, "rls-ffd": true, "exact": true, "all": true,
}

var knownSortKeys = map[string]bool{
	"": true, "sum": true, "normalized": true, "dominant": true,
}

func LoadConfig(path string) (*ExperimentConfig, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithField("path", path).WithError(err).Error("Failed to read config file")
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg ExperimentConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		logger.WithField("path", path).WithError(err).Error("Failed to parse config file")
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func applyDefaults(cfg *ExperimentConfig) {
	e := &cfg.Experiment
	if e.Algorithm == "" {
		e.Algorithm = "all"
	}
	if e.Scale == "" {
		e.Scale = generator.ScaleSmall
	}
	if e.Placement.SortKey == "" {
		e.Placement.SortKey = "sum"
	}
	if e.Placement.Weights().IsZero() {
		e.Placement.CPUWeight = 1.0
		e.Placement.MemoryWeight = 1.0
		e.Placement.StorageWeight = 0.5
	}
	if e.LocalSearch.Iterations <= 0 {
		e.LocalSearch.Iterations = 1000
	}
	if e.LocalSearch.Temperature <= 0 {
		e.LocalSearch.Temperature = 1.0
	}
	if e.LocalSearch.CoolingRate <= 0 {
		e.LocalSearch.CoolingRate = 0.95
	}
	if e.Exact.VMThreshold <= 0 {
		e.Exact.VMThreshold = 50
	}
	if e.Exact.TimeBudgetS <= 0 {
		e.Exact.TimeBudgetS = 300
	}
	if e.Evaluation.UtilizationMode == "" {
		e.Evaluation.UtilizationMode = model.UtilizationAverage
	}
	if e.Evaluation.SLAThreshold <= 0 {
		e.Evaluation.SLAThreshold = 0.8
	}
	if e.Data.OutputDir == "" {
		e.Data.OutputDir = "results"
	}
}

func validateConfig(cfg *ExperimentConfig) error {
	e := &cfg.Experiment

	if e.Name == "" {
		return fmt.Errorf("experiment name is required")
	}
	if !knownAlgorithms[e.Algorithm] {
		return fmt.Errorf("unknown algorithm %q (want ffd, bfd, rls-ffd, exact or all)", e.Algorithm)
	}
	if e.Scale != generator.ScaleSmall && e.Scale != generator.ScaleMedium {
		return fmt.Errorf("unknown scale %q (want small or medium)", e.Scale)
	}
	if !knownSortKeys[e.Placement.SortKey] {
		return fmt.Errorf("unknown sort key %q (want sum, normalized or dominant)", e.Placement.SortKey)
	}
	if e.LocalSearch.CoolingRate >= 1 {
		return fmt.Errorf("cooling_rate must be below 1, got %v", e.LocalSearch.CoolingRate)
	}
	if mode := e.Evaluation.UtilizationMode; mode != model.UtilizationAverage && mode != model.UtilizationMax {
		return fmt.Errorf("unknown utilization mode %q (want average or max)", mode)
	}
	if e.Evaluation.SLAThreshold > 1 {
		return fmt.Errorf("sla_threshold must be in (0, 1], got %v", e.Evaluation.SLAThreshold)
	}

	if db := e.Data.DB; db != nil {
		if db.Host == "" || db.Name == "" || db.Org == "" {
			return fmt.Errorf("incomplete database configuration")
		}
	}

	return nil
}
