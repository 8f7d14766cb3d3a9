package generator

import (
	"testing"
)

func TestGenerateInstanceScales(t *testing.T) {
	small, err := GenerateInstance(ScaleSmall, 42)
	if err != nil {
		t.Fatalf("small scale failed: %v", err)
	}
	if len(small.PMs) != 5 || len(small.VMs) != 25 {
		t.Errorf("small scale should be 5 PMs / 25 VMs, got %d / %d", len(small.PMs), len(small.VMs))
	}

	medium, err := GenerateInstance(ScaleMedium, 42)
	if err != nil {
		t.Fatalf("medium scale failed: %v", err)
	}
	if len(medium.PMs) != 15 || len(medium.VMs) != 80 {
		t.Errorf("medium scale should be 15 PMs / 80 VMs, got %d / %d", len(medium.PMs), len(medium.VMs))
	}

	if _, err := GenerateInstance("galactic", 42); err == nil {
		t.Error("expected an error for an unknown scale")
	}
}

func TestGenerateVMsDeterministicForSeed(t *testing.T) {
	a := GenerateVMs(50, 7)
	b := GenerateVMs(50, 7)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("VM %d differs between runs with the same seed: %+v vs %+v", i, a[i], b[i])
		}
	}

	c := GenerateVMs(50, 8)
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical populations")
	}
}

func TestGenerateVMsClassRanges(t *testing.T) {
	vms := GenerateVMs(200, 42)
	for _, vm := range vms {
		switch vm.Type {
		case "small":
			if vm.CPUDemand < 1 || vm.CPUDemand > 2 || vm.MemoryDemand < 1 || vm.MemoryDemand > 4 {
				t.Errorf("small VM %d out of range: %+v", vm.ID, vm)
			}
		case "medium":
			if vm.CPUDemand < 2 || vm.CPUDemand > 4 || vm.MemoryDemand < 4 || vm.MemoryDemand > 8 {
				t.Errorf("medium VM %d out of range: %+v", vm.ID, vm)
			}
		case "large":
			if vm.CPUDemand < 4 || vm.CPUDemand > 8 || vm.MemoryDemand < 8 || vm.MemoryDemand > 16 {
				t.Errorf("large VM %d out of range: %+v", vm.ID, vm)
			}
		default:
			t.Errorf("VM %d has unknown class %q", vm.ID, vm.Type)
		}
		if vm.StorageDemand < 10 || vm.StorageDemand > 99 {
			t.Errorf("VM %d storage out of range: %v", vm.ID, vm.StorageDemand)
		}
	}
}

func TestGeneratePMsClasses(t *testing.T) {
	pms := GeneratePMs(100, 42)
	for _, pm := range pms {
		switch pm.Type {
		case "small":
			if pm.CPUCapacity != 8 || pm.MemoryCapacity != 16 {
				t.Errorf("small PM %d has wrong capacity: %+v", pm.ID, pm)
			}
		case "medium":
			if pm.CPUCapacity != 16 || pm.MemoryCapacity != 32 {
				t.Errorf("medium PM %d has wrong capacity: %+v", pm.ID, pm)
			}
		case "large":
			if pm.CPUCapacity != 32 || pm.MemoryCapacity != 64 {
				t.Errorf("large PM %d has wrong capacity: %+v", pm.ID, pm)
			}
		default:
			t.Errorf("PM %d has unknown class %q", pm.ID, pm.Type)
		}
		if pm.PowerIdle != 100 || pm.PowerMax != 300 {
			t.Errorf("PM %d has wrong power profile: idle %v max %v", pm.ID, pm.PowerIdle, pm.PowerMax)
		}
	}
}

func TestGenerateVMsWithPressure(t *testing.T) {
	const numVMs, numPMs = 40, 10
	vms := GenerateVMsWithPressure(numVMs, numPMs, 0.6, 42)

	if len(vms) != numVMs {
		t.Fatalf("expected %d VMs, got %d", numVMs, len(vms))
	}

	var totalCPU float64
	for _, vm := range vms {
		if vm.CPUDemand < 1 || vm.CPUDemand > 16 {
			t.Errorf("VM %d CPU demand out of bounds: %v", vm.ID, vm.CPUDemand)
		}
		if vm.MemoryDemand < 1 || vm.MemoryDemand > 32 {
			t.Errorf("VM %d memory demand out of bounds: %v", vm.ID, vm.MemoryDemand)
		}
		totalCPU += vm.CPUDemand
	}

	// Steered demand should land near the target pool pressure. The noise and
	// integer truncation allow some drift, so the check is loose.
	target := float64(numPMs) * 16 * 0.6
	if totalCPU < target*0.5 || totalCPU > target*1.5 {
		t.Errorf("total CPU demand %v far from target %v", totalCPU, target)
	}
}
