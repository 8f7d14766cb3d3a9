package templates

const ComparisonTemplate = `% Generated on {{.GeneratedDate}}
%
% Experiment: {{.ExperimentName}}
% Scale: {{.Scale}}
% Runs: {{.TotalRuns}}
%
\begin{tikzpicture}
	\begin{axis}[
		ybar,
		xlabel={Algorithm},
		ylabel={ {{.YLabel}} },
		width=\textwidth,
		height=0.6\textwidth,
		symbolic x coords={ {{.AlgorithmList}} },
		xtick=data,
		ymin=0,
		ymajorgrids,
		grid style=dashed,
		nodes near coords,
		legend pos=north east,
	]
	\addplot coordinates {
{{- range .Bars}}
		({{.Algorithm}}, {{.Value}})
{{- end}}
	};
	\legend{ {{.Legend}} }
	\end{axis}
\end{tikzpicture}
`

const WrapperTemplate = `\documentclass{standalone}
\usepackage{pgfplots}
\pgfplotsset{compat=1.18}
\begin{document}
\input{ {{.PlotFile}} }
\end{document}
`
