package placement

import (
	"fmt"
	"sort"

	"vm-placement/internal/model"
)

// Placer is implemented by every placement strategy. Place never mutates its
// inputs and never returns an assignment that violates a PM capacity.
type Placer interface {
	Name() string
	Place(vms []model.VM, pms []model.PM) model.PlacementResult
}

// Sort keys for the decreasing-demand ordering shared by FFD and BFD.
const (
	SortKeySum        = "sum"
	SortKeyNormalized = "normalized"
	SortKeyDominant   = "dominant"
)

// Config controls ordering, the energy tie-break and the local search
// schedule. Zero values are filled in by Normalize.
type Config struct {
	SortKey     string
	Weights     model.ResourceVector
	EnergyMode  string
	Seed        int64
	Iterations  int
	Temperature float64
	CoolingRate float64
}

// DefaultConfig returns the documented defaults: weighted-sum ordering with
// weights CPU 1.0, memory 1.0, storage 0.5, average utilization for energy,
// and a 1000-iteration local search at temperature 1.0 cooling by 0.95.
func DefaultConfig() Config {
	return Config{
		SortKey:     SortKeySum,
		Weights:     model.ResourceVector{CPU: 1.0, Memory: 1.0, Storage: 0.5},
		EnergyMode:  model.UtilizationAverage,
		Seed:        42,
		Iterations:  1000,
		Temperature: 1.0,
		CoolingRate: 0.95,
	}
}

// Normalize fills unset fields with defaults.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.SortKey == "" {
		c.SortKey = def.SortKey
	}
	if c.Weights.IsZero() {
		c.Weights = def.Weights
	}
	if c.EnergyMode == "" {
		c.EnergyMode = def.EnergyMode
	}
	if c.Iterations <= 0 {
		c.Iterations = def.Iterations
	}
	if c.Temperature <= 0 {
		c.Temperature = def.Temperature
	}
	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		c.CoolingRate = def.CoolingRate
	}
	return c
}

// New returns the placer registered under the given algorithm name.
func New(algorithm string, cfg Config) (Placer, error) {
	switch algorithm {
	case "ffd":
		return NewFirstFitDecreasing(cfg), nil
	case "bfd":
		return NewBestFitDecreasing(cfg), nil
	case "rls-ffd":
		return NewRandomizedLocalSearch(cfg), nil
	default:
		return nil, fmt.Errorf("unknown placement algorithm: %s", algorithm)
	}
}

// sortKey computes the scalar ordering key for a VM under cfg. Higher keys
// are placed first.
func sortKey(vm *model.VM, maxCap model.ResourceVector, cfg Config) float64 {
	switch cfg.SortKey {
	case SortKeyNormalized, SortKeyDominant:
		// Dimensions are normalized by the largest capacity in the pool so
		// heterogeneous dimensions become comparable.
		ratios := model.ResourceVector{}
		if maxCap.CPU > 0 {
			ratios.CPU = vm.CPUDemand / maxCap.CPU
		}
		if maxCap.Memory > 0 {
			ratios.Memory = vm.MemoryDemand / maxCap.Memory
		}
		if maxCap.Storage > 0 {
			ratios.Storage = vm.StorageDemand / maxCap.Storage
		}
		if cfg.SortKey == SortKeyDominant {
			max := ratios.CPU
			if ratios.Memory > max {
				max = ratios.Memory
			}
			if ratios.Storage > max {
				max = ratios.Storage
			}
			return max
		}
		return ratios.CPU + ratios.Memory + ratios.Storage
	default:
		return vm.Demand().WeightedSum(cfg.Weights)
	}
}

func poolMaxCapacity(pms []model.PM) model.ResourceVector {
	var max model.ResourceVector
	for _, pm := range pms {
		if pm.CPUCapacity > max.CPU {
			max.CPU = pm.CPUCapacity
		}
		if pm.MemoryCapacity > max.Memory {
			max.Memory = pm.MemoryCapacity
		}
		if pm.StorageCapacity > max.Storage {
			max.Storage = pm.StorageCapacity
		}
	}
	return max
}

// sortVMsByDemand returns a copy of vms in decreasing key order, ties broken
// by ascending VM id so runs are reproducible regardless of input order.
func sortVMsByDemand(vms []model.VM, pms []model.PM, cfg Config) []model.VM {
	maxCap := poolMaxCapacity(pms)
	sorted := make([]model.VM, len(vms))
	copy(sorted, vms)
	keys := make(map[int]float64, len(sorted))
	for i := range sorted {
		keys[sorted[i].ID] = sortKey(&sorted[i], maxCap, cfg)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ki := keys[sorted[i].ID]
		kj := keys[sorted[j].ID]
		if ki != kj {
			return ki > kj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// ValidateInput returns the VMs that no PM in the pool could host even when
// empty. A non-empty return means the instance is invalid for every
// algorithm and no placement should be attempted.
func ValidateInput(vms []model.VM, pms []model.PM) []model.VM {
	var unplaceable []model.VM
	for _, vm := range vms {
		fits := false
		for _, pm := range pms {
			if vm.Demand().FitsWithin(pm.Capacity()) {
				fits = true
				break
			}
		}
		if !fits {
			unplaceable = append(unplaceable, vm)
		}
	}
	return unplaceable
}

func invalidInputResult(algorithm string) model.PlacementResult {
	return model.PlacementResult{
		Algorithm:  algorithm,
		Status:     model.StatusInvalidInput,
		Assignment: model.Assignment{},
	}
}

// buildResult assembles the PlacementResult from the final host states.
func buildResult(algorithm string, hosts []hostState, assignment model.Assignment, totalVMs int) model.PlacementResult {
	status := model.StatusFeasible
	if len(assignment) < totalVMs {
		status = model.StatusInfeasible
	}
	return model.PlacementResult{
		Algorithm:  algorithm,
		Status:     status,
		Assignment: assignment,
		ActivePMs:  countActive(hosts),
	}
}
