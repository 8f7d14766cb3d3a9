package model

// ResourceVector is a demand or capacity across the resource dimensions
// considered during placement. Values are non-negative; the zero value is an
// empty vector.
type ResourceVector struct {
	CPU     float64 `json:"cpu"`
	Memory  float64 `json:"memory"`
	Storage float64 `json:"storage"`
}

// Add returns the component-wise sum of r and other.
func (r ResourceVector) Add(other ResourceVector) ResourceVector {
	return ResourceVector{
		CPU:     r.CPU + other.CPU,
		Memory:  r.Memory + other.Memory,
		Storage: r.Storage + other.Storage,
	}
}

// Sub returns the component-wise difference of r and other.
func (r ResourceVector) Sub(other ResourceVector) ResourceVector {
	return ResourceVector{
		CPU:     r.CPU - other.CPU,
		Memory:  r.Memory - other.Memory,
		Storage: r.Storage - other.Storage,
	}
}

// FitsWithin reports whether every component of r is at most the
// corresponding component of capacity.
func (r ResourceVector) FitsWithin(capacity ResourceVector) bool {
	return r.CPU <= capacity.CPU &&
		r.Memory <= capacity.Memory &&
		r.Storage <= capacity.Storage
}

// IsZero reports whether all components are zero.
func (r ResourceVector) IsZero() bool {
	return r.CPU == 0 && r.Memory == 0 && r.Storage == 0
}

// WeightedSum returns the dot product of r and weights.
func (r ResourceVector) WeightedSum(weights ResourceVector) float64 {
	return r.CPU*weights.CPU + r.Memory*weights.Memory + r.Storage*weights.Storage
}

// Utilization aggregation modes.
const (
	UtilizationAverage = "average"
	UtilizationMax     = "max"
)

// Utilization aggregates the per-dimension load/capacity ratios into a single
// value according to mode. Dimensions with zero capacity are skipped.
func Utilization(load, capacity ResourceVector, mode string) float64 {
	ratios := make([]float64, 0, 3)
	if capacity.CPU > 0 {
		ratios = append(ratios, load.CPU/capacity.CPU)
	}
	if capacity.Memory > 0 {
		ratios = append(ratios, load.Memory/capacity.Memory)
	}
	if capacity.Storage > 0 {
		ratios = append(ratios, load.Storage/capacity.Storage)
	}
	if len(ratios) == 0 {
		return 0
	}

	if mode == UtilizationMax {
		max := ratios[0]
		for _, r := range ratios[1:] {
			if r > max {
				max = r
			}
		}
		return max
	}

	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	return sum / float64(len(ratios))
}

// VM is a unit of resource demand to be placed. The flat fields are the
// interchange contract for instance files; Demand bundles them for the
// placement engine. Immutable during a placement run.
type VM struct {
	ID            int     `json:"id"`
	Type          string  `json:"type,omitempty"`
	CPUDemand     float64 `json:"cpu_demand"`
	MemoryDemand  float64 `json:"memory_demand"`
	StorageDemand float64 `json:"storage_demand,omitempty"`
}

func (v VM) Demand() ResourceVector {
	return ResourceVector{CPU: v.CPUDemand, Memory: v.MemoryDemand, Storage: v.StorageDemand}
}

// PM is a unit of resource capacity hosting VMs. Capacity and the energy
// profile are fixed; load is tracked per placement run, not on the PM itself.
type PM struct {
	ID              int     `json:"id"`
	Type            string  `json:"type,omitempty"`
	CPUCapacity     float64 `json:"cpu_capacity"`
	MemoryCapacity  float64 `json:"memory_capacity"`
	StorageCapacity float64 `json:"storage_capacity,omitempty"`
	PowerIdle       float64 `json:"power_idle"`
	PowerMax        float64 `json:"power_max"`
}

func (p PM) Capacity() ResourceVector {
	return ResourceVector{CPU: p.CPUCapacity, Memory: p.MemoryCapacity, Storage: p.StorageCapacity}
}

// Power returns the power draw in watts of this PM at the given utilization,
// using the linear model power_idle + (power_max - power_idle) * utilization.
func (p PM) Power(utilization float64) float64 {
	return p.PowerIdle + (p.PowerMax-p.PowerIdle)*utilization
}

// Assignment maps VM id to PM id. It is total when a placement succeeds and
// partial when the placer ran out of capacity.
type Assignment map[int]int

// Clone returns an independent copy of the assignment.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for vm, pm := range a {
		out[vm] = pm
	}
	return out
}

// Status classifies the outcome of a placement run. Expected data conditions
// are statuses, not errors.
type Status string

const (
	// StatusFeasible means every VM was assigned without violating capacity.
	StatusFeasible Status = "feasible"
	// StatusInfeasible means the PM pool was exhausted before all VMs could
	// be placed; the assignment is partial.
	StatusInfeasible Status = "infeasible"
	// StatusInvalidInput means some VM cannot fit on any PM even when empty.
	// No placement was attempted.
	StatusInvalidInput Status = "invalid_input"
	// StatusOptimal means the exact solver proved the assignment optimal.
	StatusOptimal Status = "optimal"
	// StatusBudgetExhausted means the exact solver's time budget elapsed
	// before a proof of optimality.
	StatusBudgetExhausted Status = "budget_exhausted"
)

// PlacementResult is what every placer returns and the evaluator consumes.
type PlacementResult struct {
	Algorithm  string     `json:"algorithm"`
	Status     Status     `json:"status"`
	Assignment Assignment `json:"placement"`
	ActivePMs  int        `json:"active_pms"`
}

// Feasible reports whether the result carries a capacity-respecting
// assignment. A budget-exhausted solver run is feasible only when it salvaged
// an incumbent solution.
func (r PlacementResult) Feasible() bool {
	switch r.Status {
	case StatusFeasible, StatusOptimal:
		return true
	case StatusBudgetExhausted:
		return len(r.Assignment) > 0
	default:
		return false
	}
}

// Instance is one placement problem: the VM and PM sets handed to a placer.
// This is also the on-disk interchange shape.
type Instance struct {
	VMs []VM `json:"vms"`
	PMs []PM `json:"pms"`
}

// RunResult pairs a placement with its evaluation; one entry per algorithm
// run in a results file.
type RunResult struct {
	Result  PlacementResult `json:"result"`
	Metrics MetricSet       `json:"metrics"`
}

// MetricSet is the evaluation of one placement run.
type MetricSet struct {
	Algorithm             string  `json:"algorithm"`
	Scale                 string  `json:"scale,omitempty"`
	ActivePMs             int     `json:"active_pms"`
	TotalEnergy           float64 `json:"total_energy"`
	AvgCPUUtilization     float64 `json:"avg_cpu_utilization"`
	AvgMemoryUtilization  float64 `json:"avg_memory_utilization"`
	AvgStorageUtilization float64 `json:"avg_storage_utilization"`
	PlacementRate         float64 `json:"placement_rate"`
	FragmentationScore    float64 `json:"fragmentation_score"`
	LoadBalanceScore      float64 `json:"load_balance_score"`
	SLAViolations         int     `json:"sla_violations"`
	ExecutionTime         float64 `json:"execution_time"`
}
