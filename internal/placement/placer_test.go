package placement

import (
	"testing"

	"vm-placement/internal/model"
)

func twoEqualPMs() []model.PM {
	return []model.PM{
		{ID: 1, CPUCapacity: 4, MemoryCapacity: 4, PowerIdle: 100, PowerMax: 300},
		{ID: 2, CPUCapacity: 4, MemoryCapacity: 4, PowerIdle: 100, PowerMax: 300},
	}
}

// checkCapacity fails the test if the assignment overcommits any PM in any
// dimension.
func checkCapacity(t *testing.T, assignment model.Assignment, vms []model.VM, pms []model.PM) {
	t.Helper()
	load := make(map[int]model.ResourceVector, len(pms))
	for _, vm := range vms {
		pmID, ok := assignment[vm.ID]
		if !ok {
			continue
		}
		load[pmID] = load[pmID].Add(vm.Demand())
	}
	for _, pm := range pms {
		if !load[pm.ID].FitsWithin(pm.Capacity()) {
			t.Errorf("PM %d overcommitted: load %+v, capacity %+v", pm.ID, load[pm.ID], pm.Capacity())
		}
	}
}

func TestFFDKnownScenario(t *testing.T) {
	vms := []model.VM{
		{ID: 1, CPUDemand: 2, MemoryDemand: 4},
		{ID: 2, CPUDemand: 3, MemoryDemand: 2},
		{ID: 3, CPUDemand: 1, MemoryDemand: 1},
	}
	pms := twoEqualPMs()

	placer := NewFirstFitDecreasing(DefaultConfig())
	result := placer.Place(vms, pms)

	if result.Status != model.StatusFeasible {
		t.Fatalf("expected feasible placement, got %s", result.Status)
	}
	if result.ActivePMs != 2 {
		t.Errorf("expected 2 active PMs, got %d", result.ActivePMs)
	}
	// Decreasing weighted demand places VM 1 (key 6) first on PM 1; VM 2
	// (key 5) no longer fits there and opens PM 2; VM 3 cannot fit PM 1's
	// remaining memory, so it first-fits onto PM 2.
	if result.Assignment[1] != 1 {
		t.Errorf("VM 1 should be on PM 1, got PM %d", result.Assignment[1])
	}
	if result.Assignment[2] != 2 {
		t.Errorf("VM 2 should be on PM 2, got PM %d", result.Assignment[2])
	}
	if result.Assignment[3] != 2 {
		t.Errorf("VM 3 should first-fit onto PM 2, got PM %d", result.Assignment[3])
	}
	checkCapacity(t, result.Assignment, vms, pms)
}

func TestFFDInvalidInput(t *testing.T) {
	vms := []model.VM{{ID: 1, CPUDemand: 5, MemoryDemand: 5}}
	pms := twoEqualPMs()

	result := NewFirstFitDecreasing(DefaultConfig()).Place(vms, pms)

	if result.Status != model.StatusInvalidInput {
		t.Fatalf("expected invalid_input status, got %s", result.Status)
	}
	if len(result.Assignment) != 0 {
		t.Errorf("no assignment should be attempted for invalid input, got %d entries", len(result.Assignment))
	}
}

func TestFFDInfeasiblePartialAssignment(t *testing.T) {
	// Each VM fits on an empty PM, but the pool cannot hold all three.
	vms := []model.VM{
		{ID: 1, CPUDemand: 3, MemoryDemand: 3},
		{ID: 2, CPUDemand: 3, MemoryDemand: 3},
		{ID: 3, CPUDemand: 3, MemoryDemand: 3},
	}
	pms := twoEqualPMs()

	result := NewFirstFitDecreasing(DefaultConfig()).Place(vms, pms)

	if result.Status != model.StatusInfeasible {
		t.Fatalf("expected infeasible status, got %s", result.Status)
	}
	if len(result.Assignment) != 2 {
		t.Errorf("expected 2 VMs placed before exhaustion, got %d", len(result.Assignment))
	}
	checkCapacity(t, result.Assignment, vms, pms)
}

func TestFFDDeterministicAcrossInputOrder(t *testing.T) {
	vms := []model.VM{
		{ID: 1, CPUDemand: 2, MemoryDemand: 4},
		{ID: 2, CPUDemand: 3, MemoryDemand: 2},
		{ID: 3, CPUDemand: 1, MemoryDemand: 1},
		{ID: 4, CPUDemand: 1, MemoryDemand: 2},
	}
	reversed := []model.VM{vms[3], vms[2], vms[1], vms[0]}
	pms := twoEqualPMs()

	placer := NewFirstFitDecreasing(DefaultConfig())
	a := placer.Place(vms, pms)
	b := placer.Place(reversed, pms)

	if len(a.Assignment) != len(b.Assignment) {
		t.Fatalf("assignment sizes differ: %d vs %d", len(a.Assignment), len(b.Assignment))
	}
	for vmID, pmID := range a.Assignment {
		if b.Assignment[vmID] != pmID {
			t.Errorf("VM %d placed on PM %d in one order, PM %d in the other", vmID, pmID, b.Assignment[vmID])
		}
	}
}

func TestBFDPrefersTightestFit(t *testing.T) {
	// PM 2 is smaller; the single VM leaves less residual there, so best-fit
	// must choose it even though PM 1 scans first.
	vms := []model.VM{{ID: 1, CPUDemand: 4, MemoryDemand: 4}}
	pms := []model.PM{
		{ID: 1, CPUCapacity: 16, MemoryCapacity: 16, PowerIdle: 100, PowerMax: 300},
		{ID: 2, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
	}

	result := NewBestFitDecreasing(DefaultConfig()).Place(vms, pms)

	if result.Status != model.StatusFeasible {
		t.Fatalf("expected feasible placement, got %s", result.Status)
	}
	if result.Assignment[1] != 2 {
		t.Errorf("best fit should choose the tighter PM 2, got PM %d", result.Assignment[1])
	}
}

func TestBFDNoWorseThanFFD(t *testing.T) {
	vms := []model.VM{
		{ID: 1, CPUDemand: 4, MemoryDemand: 2},
		{ID: 2, CPUDemand: 2, MemoryDemand: 4},
		{ID: 3, CPUDemand: 3, MemoryDemand: 3},
		{ID: 4, CPUDemand: 1, MemoryDemand: 1},
		{ID: 5, CPUDemand: 2, MemoryDemand: 2},
	}
	pms := []model.PM{
		{ID: 1, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
		{ID: 2, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
		{ID: 3, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
	}

	ffd := NewFirstFitDecreasing(DefaultConfig()).Place(vms, pms)
	bfd := NewBestFitDecreasing(DefaultConfig()).Place(vms, pms)

	if !ffd.Feasible() || !bfd.Feasible() {
		t.Fatalf("both heuristics should place this instance: ffd=%s bfd=%s", ffd.Status, bfd.Status)
	}
	if bfd.ActivePMs > ffd.ActivePMs {
		t.Errorf("BFD used %d PMs, more than FFD's %d", bfd.ActivePMs, ffd.ActivePMs)
	}
	checkCapacity(t, bfd.Assignment, vms, pms)
}

func TestRLSDeterministicForSeed(t *testing.T) {
	vms := []model.VM{
		{ID: 1, CPUDemand: 2, MemoryDemand: 4},
		{ID: 2, CPUDemand: 3, MemoryDemand: 2},
		{ID: 3, CPUDemand: 1, MemoryDemand: 1},
		{ID: 4, CPUDemand: 2, MemoryDemand: 2},
		{ID: 5, CPUDemand: 1, MemoryDemand: 2},
	}
	pms := []model.PM{
		{ID: 1, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
		{ID: 2, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
		{ID: 3, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
	}

	cfg := DefaultConfig()
	cfg.Seed = 7

	a := NewRandomizedLocalSearch(cfg).Place(vms, pms)
	b := NewRandomizedLocalSearch(cfg).Place(vms, pms)

	if a.Status != model.StatusFeasible {
		t.Fatalf("expected feasible placement, got %s", a.Status)
	}
	if len(a.Assignment) != len(b.Assignment) {
		t.Fatalf("same seed produced different assignment sizes: %d vs %d", len(a.Assignment), len(b.Assignment))
	}
	for vmID, pmID := range a.Assignment {
		if b.Assignment[vmID] != pmID {
			t.Errorf("same seed placed VM %d differently: PM %d vs PM %d", vmID, pmID, b.Assignment[vmID])
		}
	}
	checkCapacity(t, a.Assignment, vms, pms)
}

func TestRLSNoWorseThanSeedSolution(t *testing.T) {
	vms := []model.VM{
		{ID: 1, CPUDemand: 4, MemoryDemand: 2},
		{ID: 2, CPUDemand: 2, MemoryDemand: 4},
		{ID: 3, CPUDemand: 3, MemoryDemand: 3},
		{ID: 4, CPUDemand: 1, MemoryDemand: 1},
		{ID: 5, CPUDemand: 2, MemoryDemand: 2},
		{ID: 6, CPUDemand: 1, MemoryDemand: 2},
	}
	pms := []model.PM{
		{ID: 1, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
		{ID: 2, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
		{ID: 3, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
		{ID: 4, CPUCapacity: 8, MemoryCapacity: 8, PowerIdle: 100, PowerMax: 300},
	}

	cfg := DefaultConfig()
	ffd := NewFirstFitDecreasing(cfg).Place(vms, pms)
	rls := NewRandomizedLocalSearch(cfg).Place(vms, pms)

	if !rls.Feasible() {
		t.Fatalf("local search lost feasibility: %s", rls.Status)
	}
	if rls.ActivePMs > ffd.ActivePMs {
		t.Errorf("local search worsened the seed: %d active PMs vs %d", rls.ActivePMs, ffd.ActivePMs)
	}
	if len(rls.Assignment) != len(vms) {
		t.Errorf("expected all %d VMs assigned, got %d", len(vms), len(rls.Assignment))
	}
	checkCapacity(t, rls.Assignment, vms, pms)
}

func TestRLSPropagatesInfeasibleSeed(t *testing.T) {
	vms := []model.VM{
		{ID: 1, CPUDemand: 3, MemoryDemand: 3},
		{ID: 2, CPUDemand: 3, MemoryDemand: 3},
		{ID: 3, CPUDemand: 3, MemoryDemand: 3},
	}
	pms := twoEqualPMs()

	result := NewRandomizedLocalSearch(DefaultConfig()).Place(vms, pms)

	if result.Status != model.StatusInfeasible {
		t.Fatalf("expected infeasible status, got %s", result.Status)
	}
	if result.Algorithm != "rls-ffd" {
		t.Errorf("result should carry the local search's name, got %q", result.Algorithm)
	}
}

func TestSortKeys(t *testing.T) {
	pms := []model.PM{{ID: 1, CPUCapacity: 10, MemoryCapacity: 100, PowerIdle: 100, PowerMax: 300}}
	maxCap := poolMaxCapacity(pms)

	// High memory but low relative pressure in both dimensions.
	balanced := model.VM{ID: 1, CPUDemand: 2, MemoryDemand: 20}
	// Low absolute demand but dominates the CPU dimension.
	cpuHeavy := model.VM{ID: 2, CPUDemand: 8, MemoryDemand: 1}

	sumCfg := Config{SortKey: SortKeySum, Weights: model.ResourceVector{CPU: 1, Memory: 1, Storage: 0.5}}
	if sortKey(&balanced, maxCap, sumCfg) <= sortKey(&cpuHeavy, maxCap, sumCfg) {
		t.Errorf("weighted sum should rank the balanced VM first")
	}

	domCfg := Config{SortKey: SortKeyDominant}
	if sortKey(&cpuHeavy, maxCap, domCfg) <= sortKey(&balanced, maxCap, domCfg) {
		t.Errorf("dominant ratio should rank the CPU-heavy VM first")
	}
}

func TestValidateInput(t *testing.T) {
	vms := []model.VM{
		{ID: 1, CPUDemand: 2, MemoryDemand: 2},
		{ID: 2, CPUDemand: 9, MemoryDemand: 1},
	}
	pms := twoEqualPMs()

	unplaceable := ValidateInput(vms, pms)
	if len(unplaceable) != 1 || unplaceable[0].ID != 2 {
		t.Fatalf("expected exactly VM 2 to be unplaceable, got %+v", unplaceable)
	}
}

func TestEmptyVMSet(t *testing.T) {
	pms := twoEqualPMs()

	for _, name := range []string{"ffd", "bfd", "rls-ffd"} {
		placer, err := New(name, DefaultConfig())
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		result := placer.Place(nil, pms)

		if result.Status != model.StatusFeasible {
			t.Errorf("%s: empty VM set should be trivially feasible, got %s", name, result.Status)
		}
		if len(result.Assignment) != 0 {
			t.Errorf("%s: expected an empty assignment, got %d entries", name, len(result.Assignment))
		}
		if result.ActivePMs != 0 {
			t.Errorf("%s: expected 0 active PMs, got %d", name, result.ActivePMs)
		}
		if result.Algorithm != name {
			t.Errorf("result should carry the placer's name %q, got %q", name, result.Algorithm)
		}
	}
}

func TestNewUnknownAlgorithm(t *testing.T) {
	if _, err := New("simulated-annealing", DefaultConfig()); err == nil {
		t.Fatal("expected an error for an unknown algorithm name")
	}
	for _, name := range []string{"ffd", "bfd", "rls-ffd"} {
		placer, err := New(name, DefaultConfig())
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if placer.Name() != name {
			t.Errorf("placer registered under %q reports name %q", name, placer.Name())
		}
	}
}
