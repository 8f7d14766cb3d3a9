package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"vm-placement/internal/logging"
	"vm-placement/internal/model"
)

// LoadInstance reads a problem instance from a JSON file with the shape
// {"vms": [...], "pms": [...]}.
func LoadInstance(path string) (model.Instance, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithField("path", path).WithError(err).Error("Failed to read instance file")
		return model.Instance{}, err
	}

	var instance model.Instance
	if err := json.Unmarshal(data, &instance); err != nil {
		logger.WithField("path", path).WithError(err).Error("Failed to parse instance file")
		return model.Instance{}, fmt.Errorf("invalid instance file %s: %w", path, err)
	}

	if err := validateInstance(&instance); err != nil {
		return model.Instance{}, fmt.Errorf("invalid instance file %s: %w", path, err)
	}

	logger.WithField("vms", len(instance.VMs)).WithField("pms", len(instance.PMs)).Info("Loaded problem instance")
	return instance, nil
}

// SaveInstance writes a problem instance as indented JSON, creating parent
// directories as needed.
func SaveInstance(instance model.Instance, path string) error {
	logger := logging.GetLogger()

	data, err := json.MarshalIndent(instance, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.WithField("path", path).WithError(err).Error("Failed to write instance file")
		return err
	}

	logger.WithField("path", path).WithField("vms", len(instance.VMs)).WithField("pms", len(instance.PMs)).Info("Saved problem instance")
	return nil
}

// SaveResults writes one results file with an entry per algorithm run.
func SaveResults(results []model.RunResult, path string) error {
	logger := logging.GetLogger()

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.WithField("path", path).WithError(err).Error("Failed to write results file")
		return err
	}

	logger.WithField("path", path).WithField("runs", len(results)).Info("Saved results")
	return nil
}

// LoadResults reads a results file back, e.g. for plotting.
func LoadResults(path string) ([]model.RunResult, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithField("path", path).WithError(err).Error("Failed to read results file")
		return nil, err
	}

	var results []model.RunResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("invalid results file %s: %w", path, err)
	}
	return results, nil
}

func validateInstance(instance *model.Instance) error {
	if len(instance.VMs) == 0 {
		return fmt.Errorf("instance contains no VMs")
	}
	if len(instance.PMs) == 0 {
		return fmt.Errorf("instance contains no PMs")
	}

	vmIDs := make(map[int]bool, len(instance.VMs))
	for _, vm := range instance.VMs {
		if vmIDs[vm.ID] {
			return fmt.Errorf("duplicate VM id %d", vm.ID)
		}
		vmIDs[vm.ID] = true
		if vm.CPUDemand < 0 || vm.MemoryDemand < 0 || vm.StorageDemand < 0 {
			return fmt.Errorf("VM %d has a negative resource demand", vm.ID)
		}
	}

	pmIDs := make(map[int]bool, len(instance.PMs))
	for _, pm := range instance.PMs {
		if pmIDs[pm.ID] {
			return fmt.Errorf("duplicate PM id %d", pm.ID)
		}
		pmIDs[pm.ID] = true
		if pm.CPUCapacity <= 0 || pm.MemoryCapacity <= 0 {
			return fmt.Errorf("PM %d has a non-positive CPU or memory capacity", pm.ID)
		}
		if pm.PowerMax < pm.PowerIdle {
			return fmt.Errorf("PM %d has power_max below power_idle", pm.ID)
		}
	}
	return nil
}
