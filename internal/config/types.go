package config

import (
	"time"

	"vm-placement/internal/model"
)

type ExperimentConfig struct {
	Experiment ExperimentInfo `yaml:"experiment"`
}

type ExperimentInfo struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	LogLevel    string            `yaml:"log_level"`
	Algorithm   string            `yaml:"algorithm"`
	Scale       string            `yaml:"scale"`
	Seed        *int64            `yaml:"seed"`
	Placement   PlacementConfig   `yaml:"placement"`
	LocalSearch LocalSearchConfig `yaml:"local_search"`
	Exact       ExactConfig       `yaml:"exact"`
	Evaluation  EvaluationConfig  `yaml:"evaluation"`
	Data        DataConfig        `yaml:"data"`
}

// PlacementConfig selects the FFD/BFD ordering policy. The default weighted
// sum uses CPU 1.0, memory 1.0, storage 0.5.
type PlacementConfig struct {
	SortKey       string  `yaml:"sort_key"`
	CPUWeight     float64 `yaml:"cpu_weight"`
	MemoryWeight  float64 `yaml:"memory_weight"`
	StorageWeight float64 `yaml:"storage_weight"`
}

type LocalSearchConfig struct {
	Iterations  int     `yaml:"iterations"`
	Temperature float64 `yaml:"temperature"`
	CoolingRate float64 `yaml:"cooling_rate"`
}

type ExactConfig struct {
	VMThreshold int `yaml:"vm_threshold"`
	TimeBudgetS int `yaml:"time_budget_s"`
}

type EvaluationConfig struct {
	UtilizationMode string  `yaml:"utilization_mode"`
	SLAThreshold    float64 `yaml:"sla_threshold"`
	IdleFloor       bool    `yaml:"idle_floor"`
}

type DataConfig struct {
	InstancePath string          `yaml:"instance_path"`
	OutputDir    string          `yaml:"output_dir"`
	DB           *DatabaseConfig `yaml:"db,omitempty"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Org      string `yaml:"org"`
}

// SeedValue returns the configured seed, defaulting to 42 when the config
// omits it. The seed is a pointer so an explicit zero stays distinguishable
// from an absent field.
func (e ExperimentInfo) SeedValue() int64 {
	if e.Seed == nil {
		return 42
	}
	return *e.Seed
}

// Weights bundles the configured sort weights as a resource vector.
func (p PlacementConfig) Weights() model.ResourceVector {
	return model.ResourceVector{CPU: p.CPUWeight, Memory: p.MemoryWeight, Storage: p.StorageWeight}
}

// TimeBudget returns the exact-solver wall-clock budget.
func (e ExactConfig) TimeBudget() time.Duration {
	return time.Duration(e.TimeBudgetS) * time.Second
}
