package evaluation

import (
	"math"

	"vm-placement/internal/logging"
	"vm-placement/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Config selects the utilization aggregation for the energy model, the SLA
// reporting threshold, and whether idle PMs draw their idle floor or nothing.
type Config struct {
	UtilizationMode string
	SLAThreshold    float64
	IdleFloor       bool
}

func DefaultConfig() Config {
	return Config{
		UtilizationMode: model.UtilizationAverage,
		SLAThreshold:    0.8,
	}
}

// pmUsage is the reconstructed load of one PM under an assignment.
type pmUsage struct {
	pm   model.PM
	load model.ResourceVector
	vms  int
}

// Evaluate scores a completed placement. It is a pure function of the result,
// the originating VM/PM sets and the configuration; it holds no state and
// never mutates its inputs.
func Evaluate(result model.PlacementResult, vms []model.VM, pms []model.PM, cfg Config) model.MetricSet {
	logger := logging.GetLogger()
	if cfg.UtilizationMode == "" {
		cfg.UtilizationMode = model.UtilizationAverage
	}
	if cfg.SLAThreshold <= 0 {
		cfg.SLAThreshold = 0.8
	}

	usage := reconstructUsage(result.Assignment, vms, pms)

	metrics := model.MetricSet{
		Algorithm: result.Algorithm,
		ActivePMs: countActive(usage),
	}
	if len(vms) > 0 {
		metrics.PlacementRate = float64(len(result.Assignment)) / float64(len(vms))
	}
	metrics.TotalEnergy = totalEnergy(usage, cfg)
	metrics.AvgCPUUtilization, metrics.AvgMemoryUtilization, metrics.AvgStorageUtilization = avgUtilization(usage)
	metrics.FragmentationScore = fragmentation(usage)
	metrics.LoadBalanceScore = loadBalance(usage, cfg.UtilizationMode)
	metrics.SLAViolations = slaViolations(usage, cfg.SLAThreshold)

	logger.WithField("algorithm", result.Algorithm).WithField("active_pms", metrics.ActivePMs).Debug("Placement evaluated")
	return metrics
}

func reconstructUsage(assignment model.Assignment, vms []model.VM, pms []model.PM) []pmUsage {
	byPM := make(map[int]*pmUsage, len(pms))
	usage := make([]pmUsage, len(pms))
	for i, pm := range pms {
		usage[i] = pmUsage{pm: pm}
		byPM[pm.ID] = &usage[i]
	}
	for _, vm := range vms {
		pmID, ok := assignment[vm.ID]
		if !ok {
			continue
		}
		if u, ok := byPM[pmID]; ok {
			u.load = u.load.Add(vm.Demand())
			u.vms++
		}
	}
	return usage
}

func countActive(usage []pmUsage) int {
	active := 0
	for i := range usage {
		if !usage[i].load.IsZero() {
			active++
		}
	}
	return active
}

// totalEnergy sums the linear power model over the pool. Idle PMs contribute
// their idle floor only when configured to.
func totalEnergy(usage []pmUsage, cfg Config) float64 {
	total := 0.0
	for i := range usage {
		u := &usage[i]
		if u.load.IsZero() {
			if cfg.IdleFloor {
				total += u.pm.PowerIdle
			}
			continue
		}
		total += u.pm.Power(model.Utilization(u.load, u.pm.Capacity(), cfg.UtilizationMode))
	}
	return total
}

func avgUtilization(usage []pmUsage) (cpu, mem, storage float64) {
	active := 0
	for i := range usage {
		u := &usage[i]
		if u.load.IsZero() {
			continue
		}
		active++
		if u.pm.CPUCapacity > 0 {
			cpu += u.load.CPU / u.pm.CPUCapacity
		}
		if u.pm.MemoryCapacity > 0 {
			mem += u.load.Memory / u.pm.MemoryCapacity
		}
		if u.pm.StorageCapacity > 0 {
			storage += u.load.Storage / u.pm.StorageCapacity
		}
	}
	if active == 0 {
		return 0, 0, 0
	}
	n := float64(active)
	return cpu / n, mem / n, storage / n
}

// fragmentation is the mean imbalance between the remaining CPU and memory
// fractions on active PMs. Lopsided leftovers strand capacity that no VM with
// a balanced demand profile can use.
func fragmentation(usage []pmUsage) float64 {
	active := 0
	score := 0.0
	for i := range usage {
		u := &usage[i]
		if u.load.IsZero() {
			continue
		}
		active++
		cpuRemaining := 0.0
		if u.pm.CPUCapacity > 0 {
			cpuRemaining = (u.pm.CPUCapacity - u.load.CPU) / u.pm.CPUCapacity
		}
		memRemaining := 0.0
		if u.pm.MemoryCapacity > 0 {
			memRemaining = (u.pm.MemoryCapacity - u.load.Memory) / u.pm.MemoryCapacity
		}
		score += math.Abs(cpuRemaining - memRemaining)
	}
	if active == 0 {
		return 0
	}
	return score / float64(active)
}

// loadBalance is the coefficient of variation of aggregate utilization
// across active PMs. Lower means more even load.
func loadBalance(usage []pmUsage, mode string) float64 {
	var utils []float64
	for i := range usage {
		u := &usage[i]
		if u.load.IsZero() {
			continue
		}
		utils = append(utils, model.Utilization(u.load, u.pm.Capacity(), mode))
	}
	if len(utils) < 2 {
		return 0
	}
	mean := stat.Mean(utils, nil)
	if mean == 0 {
		return 0
	}
	return stat.StdDev(utils, nil) / mean
}

// slaViolations counts VMs whose host exceeds the utilization threshold in
// any dimension. This is a soft report; hard limits are the feasibility
// oracle's job.
func slaViolations(usage []pmUsage, threshold float64) int {
	violations := 0
	for i := range usage {
		u := &usage[i]
		if u.load.IsZero() {
			continue
		}
		over := (u.pm.CPUCapacity > 0 && u.load.CPU/u.pm.CPUCapacity > threshold) ||
			(u.pm.MemoryCapacity > 0 && u.load.Memory/u.pm.MemoryCapacity > threshold) ||
			(u.pm.StorageCapacity > 0 && u.load.Storage/u.pm.StorageCapacity > threshold)
		if over {
			violations += u.vms
		}
	}
	return violations
}
