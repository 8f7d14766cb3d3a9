package placement

import (
	"math"
	"math/rand"
	"sort"

	"vm-placement/internal/logging"
	"vm-placement/internal/model"

	"github.com/sirupsen/logrus"
)

// RandomizedLocalSearch improves an FFD seed solution with randomized
// relocate and swap moves under a simulated-annealing acceptance rule. All
// randomness comes from the configured seed, so a given seed reproduces an
// identical trajectory and final assignment.
type RandomizedLocalSearch struct {
	cfg          Config
	placerLogger *logrus.Logger
}

func NewRandomizedLocalSearch(cfg Config) *RandomizedLocalSearch {
	return &RandomizedLocalSearch{
		cfg:          cfg.Normalize(),
		placerLogger: logging.GetPlacerLogger(),
	}
}

func (r *RandomizedLocalSearch) Name() string { return "rls-ffd" }

func (r *RandomizedLocalSearch) Place(vms []model.VM, pms []model.PM) model.PlacementResult {
	r.placerLogger.WithFields(logrus.Fields{
		"vms":        len(vms),
		"pms":        len(pms),
		"seed":       r.cfg.Seed,
		"iterations": r.cfg.Iterations,
	}).Info("Starting RLS-FFD placement")

	if unplaceable := ValidateInput(vms, pms); len(unplaceable) > 0 {
		r.placerLogger.WithField("unplaceable_vms", len(unplaceable)).Error("Instance contains VMs no PM can host")
		return invalidInputResult(r.Name())
	}

	seed := NewFirstFitDecreasing(r.cfg).Place(vms, pms)
	if seed.Status != model.StatusFeasible || len(seed.Assignment) == 0 {
		// Nothing to improve on an infeasible seed or an empty instance.
		seed.Algorithm = r.Name()
		return seed
	}

	hosts := newHostStates(pms)
	hostIdx := make(map[int]int, len(hosts))
	for i := range hosts {
		hostIdx[hosts[i].pm.ID] = i
	}
	vmByID := make(map[int]*model.VM, len(vms))
	for i := range vms {
		vmByID[vms[i].ID] = &vms[i]
	}

	assignment := seed.Assignment.Clone()
	vmIDs := make([]int, 0, len(assignment))
	for id := range assignment {
		vmIDs = append(vmIDs, id)
	}
	sort.Ints(vmIDs)
	for _, id := range vmIDs {
		apply(&hosts[hostIdx[assignment[id]]], vmByID[id])
	}

	rng := rand.New(rand.NewSource(r.cfg.Seed))
	curCost := r.cost(hosts)
	best := assignment.Clone()
	bestCost := curCost
	bestActive := countActive(hosts)

	temp := r.cfg.Temperature
	for it := 0; it < r.cfg.Iterations; it++ {
		var undo func()
		if rng.Intn(2) == 0 {
			undo = r.relocate(rng, hosts, hostIdx, vmIDs, vmByID, assignment)
		} else {
			undo = r.swap(rng, hosts, hostIdx, vmIDs, vmByID, assignment)
		}
		if undo != nil {
			newCost := r.cost(hosts)
			if r.accept(rng, curCost, newCost, temp) {
				curCost = newCost
				if curCost < bestCost {
					bestCost = curCost
					best = assignment.Clone()
					bestActive = countActive(hosts)
					r.placerLogger.WithFields(logrus.Fields{
						"iteration":  it,
						"cost":       bestCost,
						"active_pms": bestActive,
					}).Debug("New best solution")
				}
			} else {
				undo()
			}
		}
		temp *= r.cfg.CoolingRate
	}

	r.placerLogger.WithFields(logrus.Fields{
		"best_cost":  bestCost,
		"active_pms": bestActive,
	}).Info("RLS-FFD placement completed")

	return model.PlacementResult{
		Algorithm:  r.Name(),
		Status:     model.StatusFeasible,
		Assignment: best,
		ActivePMs:  bestActive,
	}
}

// cost is the local search objective: active PM count dominates, total power
// draw breaks ties between solutions with the same count.
func (r *RandomizedLocalSearch) cost(hosts []hostState) float64 {
	active := 0
	energy := 0.0
	for i := range hosts {
		if !hosts[i].active() {
			continue
		}
		active++
		energy += hosts[i].pm.Power(hosts[i].utilization(r.cfg.EnergyMode))
	}
	return float64(active)*1000 + energy/1000
}

// relocate moves one randomly chosen VM to a random different PM where it
// fits. Returns the undo function, or nil when no move was possible.
func (r *RandomizedLocalSearch) relocate(rng *rand.Rand, hosts []hostState, hostIdx map[int]int, vmIDs []int, vmByID map[int]*model.VM, assignment model.Assignment) func() {
	vmID := vmIDs[rng.Intn(len(vmIDs))]
	vm := vmByID[vmID]
	from := hostIdx[assignment[vmID]]

	for _, i := range rng.Perm(len(hosts)) {
		if i == from || !canFit(&hosts[i], vm) {
			continue
		}
		remove(&hosts[from], vm)
		apply(&hosts[i], vm)
		assignment[vmID] = hosts[i].pm.ID
		to := i
		return func() {
			remove(&hosts[to], vm)
			apply(&hosts[from], vm)
			assignment[vmID] = hosts[from].pm.ID
		}
	}
	return nil
}

// swap exchanges two VMs hosted on different PMs, valid only when both
// post-swap placements are feasible.
func (r *RandomizedLocalSearch) swap(rng *rand.Rand, hosts []hostState, hostIdx map[int]int, vmIDs []int, vmByID map[int]*model.VM, assignment model.Assignment) func() {
	if len(vmIDs) < 2 {
		return nil
	}
	aID := vmIDs[rng.Intn(len(vmIDs))]
	bID := vmIDs[rng.Intn(len(vmIDs))]
	if aID == bID || assignment[aID] == assignment[bID] {
		return nil
	}
	a, b := vmByID[aID], vmByID[bID]
	ha, hb := hostIdx[assignment[aID]], hostIdx[assignment[bID]]

	remove(&hosts[ha], a)
	remove(&hosts[hb], b)
	if !canFit(&hosts[ha], b) || !canFit(&hosts[hb], a) {
		apply(&hosts[ha], a)
		apply(&hosts[hb], b)
		return nil
	}
	apply(&hosts[ha], b)
	apply(&hosts[hb], a)
	assignment[aID] = hosts[hb].pm.ID
	assignment[bID] = hosts[ha].pm.ID

	return func() {
		remove(&hosts[ha], b)
		remove(&hosts[hb], a)
		apply(&hosts[ha], a)
		apply(&hosts[hb], b)
		assignment[aID] = hosts[ha].pm.ID
		assignment[bID] = hosts[hb].pm.ID
	}
}

// accept implements the annealing criterion: improving moves always pass,
// worsening moves pass with probability exp(-delta/temperature).
func (r *RandomizedLocalSearch) accept(rng *rand.Rand, curCost, newCost, temp float64) bool {
	if newCost < curCost {
		return true
	}
	if temp <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(-(newCost-curCost)/temp)
}
