package placement

import (
	"sort"

	"vm-placement/internal/model"
)

// hostState tracks the load of one PM during a placement run. PMs themselves
// are read-only inputs; every run gets fresh, zeroed host states.
type hostState struct {
	pm   model.PM
	load model.ResourceVector
	vms  []int
}

func (h *hostState) active() bool {
	return !h.load.IsZero()
}

func (h *hostState) utilization(mode string) float64 {
	return model.Utilization(h.load, h.pm.Capacity(), mode)
}

// newHostStates builds zeroed host states in ascending PM id order, the fixed
// scan order shared by all placers.
func newHostStates(pms []model.PM) []hostState {
	hosts := make([]hostState, len(pms))
	for i, pm := range pms {
		hosts[i] = hostState{pm: pm}
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].pm.ID < hosts[j].pm.ID })
	return hosts
}

// canFit reports whether vm's demand fits in the remaining capacity of h in
// every resource dimension.
func canFit(h *hostState, vm *model.VM) bool {
	return h.load.Add(vm.Demand()).FitsWithin(h.pm.Capacity())
}

// apply places vm on h. Callers must have checked canFit first; violating
// that ordering is a programming error, not a data condition.
func apply(h *hostState, vm *model.VM) {
	h.load = h.load.Add(vm.Demand())
	h.vms = append(h.vms, vm.ID)
}

// remove undoes apply. Used by local search to try and revert moves.
func remove(h *hostState, vm *model.VM) {
	h.load = h.load.Sub(vm.Demand())
	for i, id := range h.vms {
		if id == vm.ID {
			h.vms = append(h.vms[:i], h.vms[i+1:]...)
			break
		}
	}
}

// countActive returns the number of hosts with non-zero load.
func countActive(hosts []hostState) int {
	active := 0
	for i := range hosts {
		if hosts[i].active() {
			active++
		}
	}
	return active
}
