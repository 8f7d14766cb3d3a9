package plot

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"vm-placement/internal/model"
	"vm-placement/internal/plot/templates"

	"github.com/sirupsen/logrus"
)

// Metric fields plottable from a results file.
const (
	FieldActivePMs   = "active_pms"
	FieldTotalEnergy = "total_energy"
)

// ComparisonPlotGenerator renders an algorithm comparison bar chart (TikZ/
// pgfplots) from a saved results file.
type ComparisonPlotGenerator struct {
	logger *logrus.Logger
}

func NewComparisonPlotGenerator(logger *logrus.Logger) *ComparisonPlotGenerator {
	return &ComparisonPlotGenerator{logger: logger}
}

type PlotOptions struct {
	ExperimentName string
	Scale          string
	Field          string
}

type bar struct {
	Algorithm string
	Value     float64
}

type comparisonData struct {
	GeneratedDate  string
	ExperimentName string
	Scale          string
	TotalRuns      int
	YLabel         string
	AlgorithmList  string
	Legend         string
	Bars           []bar
}

// Generate returns the rendered plot source for the chosen metric field.
func (g *ComparisonPlotGenerator) Generate(results []model.RunResult, opts PlotOptions) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("no runs in results file")
	}

	bars := make([]bar, 0, len(results))
	for _, run := range results {
		var value float64
		switch opts.Field {
		case FieldActivePMs, "":
			value = float64(run.Metrics.ActivePMs)
		case FieldTotalEnergy:
			value = run.Metrics.TotalEnergy
		default:
			return "", fmt.Errorf("unknown plot field %q", opts.Field)
		}
		bars = append(bars, bar{Algorithm: run.Result.Algorithm, Value: value})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Algorithm < bars[j].Algorithm })

	names := make([]string, len(bars))
	for i, b := range bars {
		names[i] = b.Algorithm
	}

	yLabel := "Active PMs"
	legend := "Active PMs"
	if opts.Field == FieldTotalEnergy {
		yLabel = "Total energy (W)"
		legend = "Total energy"
	}

	data := comparisonData{
		GeneratedDate:  time.Now().Format(time.RFC3339),
		ExperimentName: opts.ExperimentName,
		Scale:          opts.Scale,
		TotalRuns:      len(results),
		YLabel:         yLabel,
		AlgorithmList:  strings.Join(names, ", "),
		Legend:         legend,
		Bars:           bars,
	}

	tmpl, err := template.New("comparison").Parse(templates.ComparisonTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse plot template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render plot: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"field": opts.Field,
		"runs":  len(results),
	}).Info("Generated comparison plot")

	return buf.String(), nil
}

// WrapperPath returns the conventional location of the standalone wrapper
// emitted next to a plot file.
func WrapperPath(plotPath string) string {
	ext := filepath.Ext(plotPath)
	return strings.TrimSuffix(plotPath, ext) + "_standalone" + ext
}

// GenerateWrapper returns a standalone LaTeX document that inputs the plot
// file, so the chart can be compiled on its own.
func (g *ComparisonPlotGenerator) GenerateWrapper(plotFile string) (string, error) {
	tmpl, err := template.New("wrapper").Parse(templates.WrapperTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse wrapper template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ PlotFile string }{PlotFile: plotFile}); err != nil {
		return "", fmt.Errorf("failed to render wrapper: %w", err)
	}
	return buf.String(), nil
}
