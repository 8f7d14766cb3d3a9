package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"vm-placement/internal/config"
	"vm-placement/internal/database"
	"vm-placement/internal/evaluation"
	"vm-placement/internal/generator"
	"vm-placement/internal/loader"
	"vm-placement/internal/logging"
	"vm-placement/internal/model"
	"vm-placement/internal/placement"
	"vm-placement/internal/plot"
	"vm-placement/internal/solver"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

var allAlgorithms = []string{"ffd", "bfd", "rls-ffd", "exact"}

func loadEnvironment() {
	logger := logging.GetLogger()
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment as-is")
	}
}

func main() {
	logger := logging.GetLogger()

	loadEnvironment()

	var configFile string
	var scale string
	var seed int64
	var outputFile string
	var resultsFile string
	var plotField string
	var withWrapper bool

	rootCmd := &cobra.Command{
		Use:     "vm-placement",
		Short:   "VM placement experiment driver",
		Long:    "Places VM workloads onto physical machines with greedy, local-search and exact algorithms and evaluates the resulting packings",
		Version: Version,
	}

	var logLevel string
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			if err := logging.SetLogLevel(logLevel); err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			if err := logging.SetPlacerLogLevel(logLevel); err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
		}
		return nil
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a placement experiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(configFile)
		},
	}
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to experiment configuration file")
	runCmd.MarkFlagRequired("config")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an experiment configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(configFile)
		},
	}
	validateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to experiment configuration file")
	validateCmd.MarkFlagRequired("config")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a problem instance file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateInstance(scale, seed, outputFile)
		},
	}
	generateCmd.Flags().StringVar(&scale, "scale", generator.ScaleSmall, "Problem scale (small, medium)")
	generateCmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for the generators")
	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "instance.json", "Instance output path")

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "Generate a comparison plot from a results file",
		Long:  "Generate a LaTeX/TikZ bar chart comparing algorithms from a saved results file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generatePlot(resultsFile, plotField, outputFile, withWrapper)
		},
	}
	plotCmd.Flags().StringVar(&resultsFile, "results", "", "Path to a results file written by run")
	plotCmd.Flags().StringVar(&plotField, "field", plot.FieldActivePMs, "Metric to plot (active_pms, total_energy)")
	plotCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Plot output path (default: stdout)")
	plotCmd.Flags().BoolVar(&withWrapper, "wrapper", false, "Also write a standalone LaTeX wrapper next to the plot file")
	plotCmd.MarkFlagRequired("results")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(plotCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Fatal("Command execution failed")
	}
}

func validateConfig(configFile string) error {
	logger := logging.GetLogger()

	_, err := config.LoadConfig(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Configuration validation failed")
		return err
	}
	logger.WithField("config_file", configFile).Info("Configuration is valid")
	return nil
}

func generateInstance(scale string, seed int64, outputFile string) error {
	instance, err := generator.GenerateInstance(scale, seed)
	if err != nil {
		return err
	}
	return loader.SaveInstance(instance, outputFile)
}

func generatePlot(resultsFile, field, outputFile string, withWrapper bool) error {
	logger := logging.GetLogger()

	results, err := loader.LoadResults(resultsFile)
	if err != nil {
		return err
	}

	gen := plot.NewComparisonPlotGenerator(logger)
	rendered, err := gen.Generate(results, plot.PlotOptions{Field: field})
	if err != nil {
		return err
	}

	if outputFile == "" {
		if withWrapper {
			return fmt.Errorf("--wrapper requires --output")
		}
		fmt.Print(rendered)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(rendered), 0o644); err != nil {
		return err
	}
	logger.WithField("path", outputFile).Info("Wrote plot file")

	if withWrapper {
		// The wrapper inputs the plot by its base name so the pair compiles
		// from the directory it was written to.
		wrapped, err := gen.GenerateWrapper(filepath.Base(outputFile))
		if err != nil {
			return err
		}
		wrapperPath := plot.WrapperPath(outputFile)
		if err := os.WriteFile(wrapperPath, []byte(wrapped), 0o644); err != nil {
			return err
		}
		logger.WithField("path", wrapperPath).Info("Wrote wrapper file")
	}
	return nil
}

func runExperiment(configFile string) error {
	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	exp := cfg.Experiment

	if exp.LogLevel != "" {
		if err := logging.SetLogLevel(exp.LogLevel); err != nil {
			return fmt.Errorf("invalid log level in config: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	expSeed := exp.SeedValue()

	// Load or generate the problem instance.
	var instance model.Instance
	if exp.Data.InstancePath != "" {
		instance, err = loader.LoadInstance(exp.Data.InstancePath)
	} else {
		instance, err = generator.GenerateInstance(exp.Scale, expSeed)
	}
	if err != nil {
		return err
	}

	algorithms := []string{exp.Algorithm}
	if exp.Algorithm == "all" {
		algorithms = allAlgorithms
	}

	placerCfg := placement.Config{
		SortKey:     exp.Placement.SortKey,
		Weights:     exp.Placement.Weights(),
		EnergyMode:  exp.Evaluation.UtilizationMode,
		Seed:        expSeed,
		Iterations:  exp.LocalSearch.Iterations,
		Temperature: exp.LocalSearch.Temperature,
		CoolingRate: exp.LocalSearch.CoolingRate,
	}
	evalCfg := evaluation.Config{
		UtilizationMode: exp.Evaluation.UtilizationMode,
		SLAThreshold:    exp.Evaluation.SLAThreshold,
		IdleFloor:       exp.Evaluation.IdleFloor,
	}
	solverCfg := solver.Config{
		VMThreshold: exp.Exact.VMThreshold,
		TimeBudget:  exp.Exact.TimeBudget(),
	}

	started := time.Now()
	var results []model.RunResult

	for _, algorithm := range algorithms {
		if ctx.Err() != nil {
			logger.Warn("Experiment interrupted")
			break
		}

		var result model.PlacementResult
		runStart := time.Now()

		if algorithm == "exact" {
			if len(instance.VMs) > solverCfg.VMThreshold {
				logger.WithFields(logrus.Fields{
					"vms":       len(instance.VMs),
					"threshold": solverCfg.VMThreshold,
				}).Warn("Skipping exact solver: instance above VM threshold")
				continue
			}
			result, err = solver.SolveExact(ctx, instance.VMs, instance.PMs, solverCfg)
			if err != nil {
				logger.WithError(err).Error("Exact solver failed")
				continue
			}
		} else {
			placer, err := placement.New(algorithm, placerCfg)
			if err != nil {
				return err
			}
			result = placer.Place(instance.VMs, instance.PMs)
		}

		metrics := evaluation.Evaluate(result, instance.VMs, instance.PMs, evalCfg)
		metrics.Scale = exp.Scale
		metrics.ExecutionTime = time.Since(runStart).Seconds()

		logger.WithFields(logrus.Fields{
			"algorithm":      algorithm,
			"status":         result.Status,
			"active_pms":     metrics.ActivePMs,
			"total_energy":   metrics.TotalEnergy,
			"execution_time": metrics.ExecutionTime,
		}).Info("Algorithm run completed")

		results = append(results, model.RunResult{Result: result, Metrics: metrics})
	}

	if len(results) == 0 {
		return fmt.Errorf("no algorithm produced a result")
	}

	resultsPath := filepath.Join(exp.Data.OutputDir, fmt.Sprintf("results_%s.json", started.Format("20060102_150405")))
	if err := loader.SaveResults(results, resultsPath); err != nil {
		return err
	}

	if exp.Data.DB != nil {
		if err := exportResults(ctx, *exp.Data.DB, exp, instance, results, started); err != nil {
			// Export failure should not discard a completed experiment.
			logger.WithError(err).Warn("Failed to export results to InfluxDB")
		}
	}

	logger.WithField("runs", len(results)).Info("Experiment completed")
	return nil
}

func exportResults(ctx context.Context, dbCfg config.DatabaseConfig, exp config.ExperimentInfo, instance model.Instance, results []model.RunResult, started time.Time) error {
	client, err := database.NewInfluxDBClient(dbCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	meta := database.ExperimentMetadata{
		ExperimentName: exp.Name,
		Scale:          exp.Scale,
		Seed:           exp.SeedValue(),
		TotalVMs:       len(instance.VMs),
		TotalPMs:       len(instance.PMs),
		Started:        started,
		Finished:       time.Now(),
	}
	return client.WriteResults(ctx, meta, results)
}
