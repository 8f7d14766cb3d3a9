package solver

import (
	"context"
	"fmt"
	"time"

	"vm-placement/internal/logging"
	"vm-placement/internal/model"
	"vm-placement/internal/placement"

	"github.com/draffensperger/golp"
	"github.com/sirupsen/logrus"
)

// Name is the algorithm label used in results.
const Name = "exact"

// Config bounds the exact solver. The VM threshold guards against the
// exponential blowup of the assignment program; the time budget bounds the
// wall clock of a single solve.
type Config struct {
	VMThreshold int
	TimeBudget  time.Duration
}

func DefaultConfig() Config {
	return Config{VMThreshold: 50, TimeBudget: 300 * time.Second}
}

// lp_solve solve() return codes, stable across versions.
const (
	lpOptimal     = 0
	lpSuboptimal  = 1
	lpInfeasible  = 2
	lpUnbounded   = 3
	lpDegenerate  = 4
	lpNumFailure  = 5
	lpUserAbort   = 6
	lpTimeout     = 7
	lpFeasFound   = 12
	lpNoFeasFound = 13
)

// SolveExact formulates the placement as an integer program (binary x[v][p]
// assignment variables, binary y[p] activation variables, objective minimize
// the number of active PMs) and solves it within cfg.TimeBudget. The status
// on the returned result distinguishes a proven optimum from a budget-bounded
// incumbent and from true infeasibility. An error is returned only for
// misuse (instance above the VM threshold), never for data conditions.
func SolveExact(ctx context.Context, vms []model.VM, pms []model.PM, cfg Config) (model.PlacementResult, error) {
	logger := logging.GetPlacerLogger()

	if cfg.VMThreshold > 0 && len(vms) > cfg.VMThreshold {
		return model.PlacementResult{}, fmt.Errorf("instance has %d VMs, above the exact-solver threshold of %d", len(vms), cfg.VMThreshold)
	}

	logger.WithFields(logrus.Fields{
		"vms":    len(vms),
		"pms":    len(pms),
		"budget": cfg.TimeBudget,
	}).Info("Starting exact ILP solve")

	if unplaceable := placement.ValidateInput(vms, pms); len(unplaceable) > 0 {
		logger.WithField("unplaceable_vms", len(unplaceable)).Error("Instance contains VMs no PM can host")
		return model.PlacementResult{
			Algorithm:  Name,
			Status:     model.StatusInvalidInput,
			Assignment: model.Assignment{},
		}, nil
	}

	lp := buildProgram(vms, pms)

	if cfg.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TimeBudget)
		defer cancel()
	}

	// lp_solve cannot be interrupted mid-branch, so the solve runs on its own
	// goroutine; on budget expiry the result is abandoned and the run is
	// reported as budget-exhausted without an incumbent.
	done := make(chan model.PlacementResult, 1)
	go func() {
		done <- extractSolution(lp, vms, pms)
	}()

	select {
	case <-ctx.Done():
		logger.WithField("budget", cfg.TimeBudget).Warn("Exact solve abandoned: time budget exhausted before a proof of optimality")
		return model.PlacementResult{
			Algorithm:  Name,
			Status:     model.StatusBudgetExhausted,
			Assignment: model.Assignment{},
		}, nil
	case result := <-done:
		logger.WithFields(logrus.Fields{
			"status":     result.Status,
			"active_pms": result.ActivePMs,
		}).Info("Exact solve completed")
		return result, nil
	}
}

// buildProgram lays out columns as x[v][p] for v*|P|+p followed by y[p] at
// |V|*|P|+p, all binary.
func buildProgram(vms []model.VM, pms []model.PM) *golp.LP {
	numVMs := len(vms)
	numPMs := len(pms)
	numCols := numVMs*numPMs + numPMs

	lp := golp.NewLP(0, numCols)
	for col := 0; col < numCols; col++ {
		lp.SetBinary(col, true)
	}

	// Each VM is assigned to exactly one PM.
	for v := 0; v < numVMs; v++ {
		row := make([]golp.Entry, 0, numPMs)
		for p := 0; p < numPMs; p++ {
			row = append(row, golp.Entry{Col: v*numPMs + p, Val: 1.0})
		}
		lp.AddConstraintSparse(row, golp.EQ, 1.0)
	}

	// Per-PM capacity in each dimension, gated on the activation variable:
	// sum_v demand[v][d] * x[v][p] - capacity[p][d] * y[p] <= 0.
	demand := func(v int, dim int) float64 {
		switch dim {
		case 0:
			return vms[v].CPUDemand
		case 1:
			return vms[v].MemoryDemand
		default:
			return vms[v].StorageDemand
		}
	}
	capacity := func(p int, dim int) float64 {
		switch dim {
		case 0:
			return pms[p].CPUCapacity
		case 1:
			return pms[p].MemoryCapacity
		default:
			return pms[p].StorageCapacity
		}
	}
	dims := 2
	for v := 0; v < numVMs; v++ {
		if vms[v].StorageDemand > 0 {
			dims = 3
			break
		}
	}
	for p := 0; p < numPMs; p++ {
		for dim := 0; dim < dims; dim++ {
			row := make([]golp.Entry, 0, numVMs+1)
			for v := 0; v < numVMs; v++ {
				if d := demand(v, dim); d > 0 {
					row = append(row, golp.Entry{Col: v*numPMs + p, Val: d})
				}
			}
			row = append(row, golp.Entry{Col: numVMs*numPMs + p, Val: -capacity(p, dim)})
			lp.AddConstraintSparse(row, golp.LE, 0)
		}
	}

	// Explicit linking so a PM with only zero-demand dimensions in use still
	// counts as active: sum_v x[v][p] - |V| * y[p] <= 0.
	for p := 0; p < numPMs; p++ {
		row := make([]golp.Entry, 0, numVMs+1)
		for v := 0; v < numVMs; v++ {
			row = append(row, golp.Entry{Col: v*numPMs + p, Val: 1.0})
		}
		row = append(row, golp.Entry{Col: numVMs*numPMs + p, Val: -float64(numVMs)})
		lp.AddConstraintSparse(row, golp.LE, 0)
	}

	// Minimize the number of active PMs.
	objective := make([]float64, numCols)
	for p := 0; p < numPMs; p++ {
		objective[numVMs*numPMs+p] = 1.0
	}
	lp.SetObjFn(objective)

	return lp
}

func extractSolution(lp *golp.LP, vms []model.VM, pms []model.PM) model.PlacementResult {
	numPMs := len(pms)
	code := int(lp.Solve())

	var status model.Status
	switch code {
	case lpOptimal, lpDegenerate:
		status = model.StatusOptimal
	case lpSuboptimal, lpTimeout, lpFeasFound:
		status = model.StatusBudgetExhausted
	case lpInfeasible, lpNoFeasFound, lpUnbounded:
		return model.PlacementResult{
			Algorithm:  Name,
			Status:     model.StatusInfeasible,
			Assignment: model.Assignment{},
		}
	default:
		// Numerical failure or user abort; treat as no usable solution.
		return model.PlacementResult{
			Algorithm:  Name,
			Status:     model.StatusInfeasible,
			Assignment: model.Assignment{},
		}
	}

	vars := lp.Variables()
	assignment := make(model.Assignment, len(vms))
	activeSet := make(map[int]bool)
	for v := range vms {
		for p := 0; p < numPMs; p++ {
			if vars[v*numPMs+p] > 0.5 {
				assignment[vms[v].ID] = pms[p].ID
				activeSet[pms[p].ID] = true
				break
			}
		}
	}

	return model.PlacementResult{
		Algorithm:  Name,
		Status:     status,
		Assignment: assignment,
		ActivePMs:  len(activeSet),
	}
}
