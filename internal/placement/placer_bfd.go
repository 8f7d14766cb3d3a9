package placement

import (
	"math"

	"vm-placement/internal/logging"
	"vm-placement/internal/model"

	"github.com/sirupsen/logrus"
)

// BestFitDecreasing uses the same ordering as FFD but assigns each VM to the
// PM that would be left with the least normalized residual capacity,
// preferring to fill near-full PMs over opening fresh ones.
type BestFitDecreasing struct {
	cfg          Config
	placerLogger *logrus.Logger
}

func NewBestFitDecreasing(cfg Config) *BestFitDecreasing {
	return &BestFitDecreasing{
		cfg:          cfg.Normalize(),
		placerLogger: logging.GetPlacerLogger(),
	}
}

func (b *BestFitDecreasing) Name() string { return "bfd" }

func (b *BestFitDecreasing) Place(vms []model.VM, pms []model.PM) model.PlacementResult {
	b.placerLogger.WithFields(logrus.Fields{
		"vms":      len(vms),
		"pms":      len(pms),
		"sort_key": b.cfg.SortKey,
	}).Info("Starting BFD placement")

	if unplaceable := ValidateInput(vms, pms); len(unplaceable) > 0 {
		b.placerLogger.WithField("unplaceable_vms", len(unplaceable)).Error("Instance contains VMs no PM can host")
		return invalidInputResult(b.Name())
	}

	hosts := newHostStates(pms)
	assignment := make(model.Assignment, len(vms))

	for _, vm := range sortVMsByDemand(vms, pms, b.cfg) {
		bestIdx := -1
		bestScore := math.MaxFloat64
		for i := range hosts {
			if !canFit(&hosts[i], &vm) {
				continue
			}
			score := residualScore(&hosts[i], &vm)
			// Strict less keeps the lowest PM id on ties (hosts are in
			// ascending id order).
			if score < bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			b.placerLogger.WithField("vm_id", vm.ID).Warn("No PM with remaining capacity for VM")
			continue
		}
		apply(&hosts[bestIdx], &vm)
		assignment[vm.ID] = hosts[bestIdx].pm.ID
	}

	result := buildResult(b.Name(), hosts, assignment, len(vms))
	b.placerLogger.WithFields(logrus.Fields{
		"placed":     len(assignment),
		"total_vms":  len(vms),
		"active_pms": result.ActivePMs,
		"status":     result.Status,
	}).Info("BFD placement completed")
	return result
}

// residualScore is the sum over dimensions of the remaining/capacity ratio
// after placing vm on h. Lower means a tighter fit.
func residualScore(h *hostState, vm *model.VM) float64 {
	remaining := h.pm.Capacity().Sub(h.load.Add(vm.Demand()))
	cap := h.pm.Capacity()
	score := 0.0
	if cap.CPU > 0 {
		score += remaining.CPU / cap.CPU
	}
	if cap.Memory > 0 {
		score += remaining.Memory / cap.Memory
	}
	if cap.Storage > 0 {
		score += remaining.Storage / cap.Storage
	}
	return score
}
