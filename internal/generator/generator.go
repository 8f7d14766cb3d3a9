package generator

import (
	"fmt"
	"math/rand"

	"vm-placement/internal/logging"
	"vm-placement/internal/model"
)

// Problem scales used by the experiment driver.
const (
	ScaleSmall  = "small"
	ScaleMedium = "medium"
)

// GenerateInstance builds the VM and PM population for a named scale. All
// randomness derives from the given seed.
func GenerateInstance(scale string, seed int64) (model.Instance, error) {
	var numPMs, numVMs int
	switch scale {
	case ScaleSmall:
		numPMs, numVMs = 5, 25
	case ScaleMedium:
		numPMs, numVMs = 15, 80
	default:
		return model.Instance{}, fmt.Errorf("unknown problem scale: %s", scale)
	}

	logging.GetLogger().WithField("scale", scale).WithField("pms", numPMs).WithField("vms", numVMs).Info("Generating problem instance")

	return model.Instance{
		VMs: GenerateVMs(numVMs, seed),
		PMs: GeneratePMs(numPMs, seed),
	}, nil
}

// GenerateVMs produces a heterogeneous VM population: 30% small (1-2 CPU,
// 1-4 GB), 50% medium (2-4 CPU, 4-8 GB), 20% large (4-8 CPU, 8-16 GB), each
// with 10-99 GB storage.
func GenerateVMs(num int, seed int64) []model.VM {
	rng := rand.New(rand.NewSource(seed))
	vms := make([]model.VM, num)

	for i := range vms {
		var class string
		var cpu, mem int
		switch r := rng.Float64(); {
		case r < 0.3:
			class = "small"
			cpu = 1 + rng.Intn(2)
			mem = 1 + rng.Intn(4)
		case r < 0.8:
			class = "medium"
			cpu = 2 + rng.Intn(3)
			mem = 4 + rng.Intn(5)
		default:
			class = "large"
			cpu = 4 + rng.Intn(5)
			mem = 8 + rng.Intn(9)
		}
		vms[i] = model.VM{
			ID:            i,
			Type:          class,
			CPUDemand:     float64(cpu),
			MemoryDemand:  float64(mem),
			StorageDemand: float64(10 + rng.Intn(90)),
		}
	}
	return vms
}

// GeneratePMs produces a heterogeneous PM population: 20% small (8 CPU,
// 16 GB), 50% medium (16 CPU, 32 GB), 30% large (32 CPU, 64 GB), all with
// 1 TB storage and a 100 W idle / 300 W max power profile.
func GeneratePMs(num int, seed int64) []model.PM {
	rng := rand.New(rand.NewSource(seed))
	pms := make([]model.PM, num)

	for i := range pms {
		var class string
		var cpu, mem float64
		switch r := rng.Float64(); {
		case r < 0.2:
			class = "small"
			cpu, mem = 8, 16
		case r < 0.7:
			class = "medium"
			cpu, mem = 16, 32
		default:
			class = "large"
			cpu, mem = 32, 64
		}
		pms[i] = model.PM{
			ID:              i,
			Type:            class,
			CPUCapacity:     cpu,
			MemoryCapacity:  mem,
			StorageCapacity: 1000,
			PowerIdle:       100,
			PowerMax:        300,
		}
	}
	return pms
}

// GenerateHomogeneousPMs produces num identical PMs, useful for isolating
// algorithm behavior from pool heterogeneity.
func GenerateHomogeneousPMs(num int, cpuCapacity, memoryCapacity float64) []model.PM {
	pms := make([]model.PM, num)
	for i := range pms {
		pms[i] = model.PM{
			ID:              i,
			Type:            "standard",
			CPUCapacity:     cpuCapacity,
			MemoryCapacity:  memoryCapacity,
			StorageCapacity: 1000,
			PowerIdle:       100,
			PowerMax:        300,
		}
	}
	return pms
}

// GenerateVMsWithPressure produces a VM population whose total demand steers
// the pool toward the target utilization, assuming 16 CPU / 32 GB PMs. The
// per-VM budget is the remaining target demand spread over the remaining
// VMs, with 30% noise.
func GenerateVMsWithPressure(numVMs, numPMs int, targetUtilization float64, seed int64) []model.VM {
	const pmCPU, pmMemory = 16.0, 32.0

	rng := rand.New(rand.NewSource(seed))
	targetCPU := float64(numPMs) * pmCPU * targetUtilization
	targetMemory := float64(numPMs) * pmMemory * targetUtilization

	vms := make([]model.VM, numVMs)
	var usedCPU, usedMemory float64

	for i := range vms {
		remaining := float64(numVMs - i)
		cpuBudget := (targetCPU - usedCPU) / remaining
		memBudget := (targetMemory - usedMemory) / remaining

		cpu := clamp(cpuBudget+rng.NormFloat64()*cpuBudget*0.3, 1, pmCPU)
		mem := clamp(memBudget+rng.NormFloat64()*memBudget*0.3, 1, pmMemory)

		vms[i] = model.VM{
			ID:            i,
			CPUDemand:     float64(int(cpu)),
			MemoryDemand:  float64(int(mem)),
			StorageDemand: float64(10 + rng.Intn(90)),
		}
		usedCPU += vms[i].CPUDemand
		usedMemory += vms[i].MemoryDemand
	}
	return vms
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
