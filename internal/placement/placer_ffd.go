package placement

import (
	"vm-placement/internal/logging"
	"vm-placement/internal/model"

	"github.com/sirupsen/logrus"
)

// FirstFitDecreasing places VMs in decreasing demand order onto the first PM
// with room, scanning PMs in ascending id order. Deterministic for a given
// instance regardless of input order.
type FirstFitDecreasing struct {
	cfg          Config
	placerLogger *logrus.Logger
}

func NewFirstFitDecreasing(cfg Config) *FirstFitDecreasing {
	return &FirstFitDecreasing{
		cfg:          cfg.Normalize(),
		placerLogger: logging.GetPlacerLogger(),
	}
}

func (f *FirstFitDecreasing) Name() string { return "ffd" }

func (f *FirstFitDecreasing) Place(vms []model.VM, pms []model.PM) model.PlacementResult {
	f.placerLogger.WithFields(logrus.Fields{
		"vms":      len(vms),
		"pms":      len(pms),
		"sort_key": f.cfg.SortKey,
	}).Info("Starting FFD placement")

	if unplaceable := ValidateInput(vms, pms); len(unplaceable) > 0 {
		f.placerLogger.WithField("unplaceable_vms", len(unplaceable)).Error("Instance contains VMs no PM can host")
		return invalidInputResult(f.Name())
	}

	hosts := newHostStates(pms)
	assignment := make(model.Assignment, len(vms))

	for _, vm := range sortVMsByDemand(vms, pms, f.cfg) {
		placed := false
		for i := range hosts {
			if canFit(&hosts[i], &vm) {
				apply(&hosts[i], &vm)
				assignment[vm.ID] = hosts[i].pm.ID
				placed = true
				break
			}
		}
		if !placed {
			f.placerLogger.WithField("vm_id", vm.ID).Warn("No PM with remaining capacity for VM")
		}
	}

	result := buildResult(f.Name(), hosts, assignment, len(vms))
	f.placerLogger.WithFields(logrus.Fields{
		"placed":     len(assignment),
		"total_vms":  len(vms),
		"active_pms": result.ActivePMs,
		"status":     result.Status,
	}).Info("FFD placement completed")
	return result
}
