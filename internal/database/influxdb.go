package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"vm-placement/internal/config"
	"vm-placement/internal/logging"
	"vm-placement/internal/model"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"
)

// ExperimentMetadata describes one driver invocation; written once per
// results export so runs can be correlated in the database.
type ExperimentMetadata struct {
	ExperimentName string
	Scale          string
	Seed           int64
	TotalVMs       int
	TotalPMs       int
	Hostname       string
	Started        time.Time
	Finished       time.Time
}

// InfluxDBClient exports placement run metrics to an InfluxDB bucket.
type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

func NewInfluxDBClient(cfg config.DatabaseConfig) (*InfluxDBClient, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Password)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		return nil, err
	}
	if health.Status != "pass" {
		logger.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"status":  health.Status,
			"message": health.Message,
		}).Error("InfluxDB health check failed")
		return nil, fmt.Errorf("influxdb health check failed: %s", health.Status)
	}

	writeAPI := client.WriteAPIBlocking(cfg.Org, cfg.Name)

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Name,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxDBClient{
		client:   client,
		writeAPI: writeAPI,
		bucket:   cfg.Name,
		org:      cfg.Org,
	}, nil
}

// WriteResults writes one point per algorithm run plus a metadata point for
// the experiment.
func (idb *InfluxDBClient) WriteResults(ctx context.Context, meta ExperimentMetadata, results []model.RunResult) error {
	logger := logging.GetLogger()

	if meta.Hostname == "" {
		if hostname, err := os.Hostname(); err == nil {
			meta.Hostname = hostname
		} else {
			meta.Hostname = "unknown"
		}
	}

	metaPoint := influxdb2.NewPoint(
		"experiment_metadata",
		map[string]string{
			"experiment": meta.ExperimentName,
			"scale":      meta.Scale,
		},
		map[string]interface{}{
			"seed":             meta.Seed,
			"total_vms":        meta.TotalVMs,
			"total_pms":        meta.TotalPMs,
			"hostname":         meta.Hostname,
			"duration_seconds": meta.Finished.Sub(meta.Started).Seconds(),
		},
		meta.Finished,
	)
	if err := idb.writeAPI.WritePoint(ctx, metaPoint); err != nil {
		return fmt.Errorf("failed to write experiment metadata: %w", err)
	}

	for _, run := range results {
		point := influxdb2.NewPoint(
			"placement_result",
			map[string]string{
				"experiment": meta.ExperimentName,
				"algorithm":  run.Result.Algorithm,
				"scale":      meta.Scale,
				"status":     string(run.Result.Status),
			},
			map[string]interface{}{
				"active_pms":           run.Metrics.ActivePMs,
				"total_energy":         run.Metrics.TotalEnergy,
				"avg_cpu_utilization":  run.Metrics.AvgCPUUtilization,
				"avg_mem_utilization":  run.Metrics.AvgMemoryUtilization,
				"placement_rate":       run.Metrics.PlacementRate,
				"fragmentation_score":  run.Metrics.FragmentationScore,
				"load_balance_score":   run.Metrics.LoadBalanceScore,
				"sla_violations":       run.Metrics.SLAViolations,
				"execution_time":       run.Metrics.ExecutionTime,
			},
			meta.Finished,
		)
		if err := idb.writeAPI.WritePoint(ctx, point); err != nil {
			return fmt.Errorf("failed to write result for %s: %w", run.Result.Algorithm, err)
		}
	}

	logger.WithField("runs", len(results)).Info("Exported results to InfluxDB")
	return nil
}

func (idb *InfluxDBClient) Close() {
	idb.client.Close()
}
