// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command chartgen renders the output of the swapbox benchmarks as bar charts
// comparing lock variants across goroutine counts. It reads benchmark results
// in the standard format from the files named on the command line, or from
// stdin, and writes one SVG per benchmark and unit into ./charts.
package main

import (
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/perf/benchfmt"
	"golang.org/x/perf/benchmath"
	"golang.org/x/perf/benchproc"
	"golang.org/x/perf/benchunit"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

type chartUnit struct {
	unit       string
	title      string
	yAxisLabel string
	scale      float64
	class      benchunit.Class
}

var chartUnits = []chartUnit{
	{"ops/s", "Throughput", "Operations / Second", 1, benchunit.Decimal},
	{"sec/op", "Latency", "Nanoseconds / Operation", 1e9, benchunit.Decimal},
	{"allocs/op", "Allocations", "Allocations / Operation", 1, benchunit.Decimal},
}

type BenchKey struct{ benchproc.Key }
type VariantKey struct{ benchproc.Key }
type GoroutinesKey struct{ benchproc.Key }

type cellKey struct {
	bench      BenchKey
	variant    VariantKey
	goroutines GoroutinesKey
	unit       string
}

func main() {
	var pp benchproc.ProjectionParser
	benchP, err := pp.Parse(".name", nil)
	if err != nil {
		log.Fatal(err)
	}
	variantP, err := pp.Parse("/variant", nil)
	if err != nil {
		log.Fatal(err)
	}
	goroutinesP, err := pp.Parse("/goroutines", nil)
	if err != nil {
		log.Fatal(err)
	}
	residueP := pp.Residue()

	samples := make(map[cellKey][]float64)
	benchKeySet := make(map[BenchKey]struct{})
	variantKeySet := make(map[VariantKey]struct{})
	goroutinesKeySet := make(map[GoroutinesKey]struct{})
	var residues []benchproc.Key

	benchFiles := &benchfmt.Files{
		Paths:       os.Args[1:],
		AllowStdin:  true,
		AllowLabels: true,
	}
	for benchFiles.Scan() {
		var res *benchfmt.Result
		switch rec := benchFiles.Result(); rec := rec.(type) {
		case *benchfmt.Result:
			res = rec
		case *benchfmt.SyntaxError:
			// Report a non-fatal parse error.
			log.Print(rec)
			continue
		default:
			// Unknown record type. Ignore.
			continue
		}

		benchKey := BenchKey{benchP.Project(res)}
		variantKey := VariantKey{variantP.Project(res)}
		goroutinesKey := GoroutinesKey{goroutinesP.Project(res)}
		benchKeySet[benchKey] = struct{}{}
		variantKeySet[variantKey] = struct{}{}
		goroutinesKeySet[goroutinesKey] = struct{}{}
		for _, v := range res.Values {
			k := cellKey{benchKey, variantKey, goroutinesKey, v.Unit}
			samples[k] = append(samples[k], v.Value)
		}
		residues = append(residues, residueP.Project(res))
	}
	if err := benchFiles.Err(); err != nil {
		log.Fatalf("Error reading benchmark files: %v", err)
	}

	if nonsingular := benchproc.NonSingularFields(residues); len(nonsingular) > 0 {
		fmt.Printf("warning: results vary in %s\n", nonsingular)
	}

	benchKeys := sortedKeys(benchKeySet, func(a, b BenchKey) int {
		return strings.Compare(a.Get(benchP.Fields()[0]), b.Get(benchP.Fields()[0]))
	})
	variantKeys := sortedKeys(variantKeySet, func(a, b VariantKey) int {
		return strings.Compare(a.Get(variantP.Fields()[0]), b.Get(variantP.Fields()[0]))
	})

	goroutineCounts := make(map[GoroutinesKey]int)
	for k := range goroutinesKeySet {
		s := k.Get(goroutinesP.Fields()[0])
		n, err := strconv.Atoi(s)
		if err != nil {
			log.Fatalf("Error parsing goroutine count %q: %v", s, err)
		}
		goroutineCounts[k] = n
	}
	goroutinesKeys := sortedKeys(goroutinesKeySet, func(a, b GoroutinesKey) int {
		return goroutineCounts[a] - goroutineCounts[b]
	})

	confidence := 0.95
	thresholds := benchmath.DefaultThresholds
	summarize := func(k cellKey) (benchmath.Summary, bool) {
		values, ok := samples[k]
		if !ok {
			return benchmath.Summary{}, false
		}
		sample := benchmath.NewSample(values, &thresholds)
		for _, w := range sample.Warnings {
			log.Printf("sample warning: %v", w)
		}
		return benchmath.AssumeNothing.Summary(sample, confidence), true
	}

	for _, benchKey := range benchKeys {
		benchName := benchKey.Get(benchP.Fields()[0])
		for _, cu := range chartUnits {
			c := chart{
				Title:        fmt.Sprintf("%s %s", benchName, cu.title),
				XAxisLabel:   "Goroutines Sharing the Box",
				YAxisLabel:   cu.yAxisLabel,
				FileBasename: fmt.Sprintf("%s_%s", benchName, cu.title),
			}
			for _, gk := range goroutinesKeys {
				c.XTickLabels = append(c.XTickLabels, strconv.Itoa(goroutineCounts[gk]))
			}
			for _, vk := range variantKeys {
				series := seriesPoints{
					XYs:     make(plotter.XYs, len(goroutinesKeys)),
					YErrors: make(plotter.YErrors, len(goroutinesKeys)),
					Labels:  make([]string, len(goroutinesKeys)),
				}
				found := false
				for i, gk := range goroutinesKeys {
					s, ok := summarize(cellKey{benchKey, vk, gk, cu.unit})
					if !ok {
						continue
					}
					found = true
					s.Center *= cu.scale
					s.Hi *= cu.scale
					s.Lo *= cu.scale
					series.XYs[i].Y = s.Center
					series.YErrors[i].High = s.Hi - s.Center
					series.YErrors[i].Low = s.Center - s.Lo
					series.Labels[i] = formatSummary(&s, cu.class)
				}
				if found {
					c.SeriesLabels = append(c.SeriesLabels, vk.Get(variantP.Fields()[0]))
					c.SeriesPoints = append(c.SeriesPoints, series)
				}
			}
			if len(c.SeriesPoints) == 0 {
				continue
			}
			if err := plotBars(&c); err != nil {
				log.Fatalf("Error creating chart: %v", err)
			}
		}
	}

	fmt.Println("Charts generated successfully in the 'charts' directory.")
}

func sortedKeys[K comparable](set map[K]struct{}, cmp func(a, b K) int) []K {
	keys := make([]K, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, cmp)
	return keys
}

type seriesPoints struct {
	XYs     plotter.XYs
	YErrors plotter.YErrors
	Labels  []string
}

type chart struct {
	Title        string
	YAxisLabel   string
	XAxisLabel   string
	XTickLabels  []string
	SeriesLabels []string
	SeriesPoints []seriesPoints
	FileBasename string
}

func setupPlot(c *chart) *plot.Plot {
	p := plot.New()

	p.Title.Text = c.Title
	p.X.Label.Text = c.XAxisLabel
	p.Y.Label.Text = c.YAxisLabel

	p.Title.TextStyle.Color = color.Gray{128}
	p.X.Color = color.Gray{128}
	p.Y.Color = color.Gray{128}
	p.X.Label.TextStyle.Color = color.Gray{128}
	p.Y.Label.TextStyle.Color = color.Gray{128}
	p.X.Tick.Color = color.Gray{128}
	p.Y.Tick.Color = color.Gray{128}
	p.X.Tick.Label.Color = color.Gray{128}
	p.Y.Tick.Label.Color = color.Gray{128}
	p.Legend.TextStyle.Color = color.Gray{128}

	xTicks := make([]plot.Tick, len(c.XTickLabels))
	for i, label := range c.XTickLabels {
		xTicks[i] = plot.Tick{Value: float64(i), Label: label}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.X.Min = -0.5
	p.X.Max = float64(len(c.XTickLabels)) - 0.5

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.BackgroundColor = color.Transparent

	return p
}

// plotBars draws one group of bars per goroutine count, one bar per series
// within each group, each with its error bar and summary label.
func plotBars(c *chart) error {
	p := setupPlot(c)

	palette, err := brewer.GetPalette(brewer.TypeQualitative, "Paired", max(3, len(c.SeriesLabels)))
	if err != nil {
		return err
	}
	colors := palette.Colors()

	// Bars within a group are spread across this fraction of the distance
	// between groups, in data units so error bars line up with them.
	const groupSpan = 0.8
	slot := groupSpan / float64(len(c.SeriesPoints))
	barWidth := vg.Points(24)

	for i, label := range c.SeriesLabels {
		points := c.SeriesPoints[i]
		shift := (float64(i)+0.5)*slot - groupSpan/2
		for j := range points.XYs {
			points.XYs[j].X = float64(j) + shift
		}

		bc, err := plotter.NewBarChart(xyValues{points.XYs}, barWidth)
		if err != nil {
			return err
		}
		bc.XMin = shift
		bc.Color = colors[i]
		bc.LineStyle.Width = 0
		p.Add(bc)
		p.Legend.Add(label, bc)

		errorBars, err := plotter.NewYErrorBars(struct {
			plotter.XYs
			plotter.YErrors
		}{points.XYs, points.YErrors})
		if err != nil {
			return err
		}
		errorBars.LineStyle.Color = color.Gray{128}
		errorBars.LineStyle.Width = 0.2 * vg.Millimeter
		p.Add(errorBars)

		labelXYs := make(plotter.XYs, len(points.XYs))
		for j, xy := range points.XYs {
			labelXYs[j] = plotter.XY{X: xy.X, Y: xy.Y + points.YErrors[j].High}
		}
		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: points.Labels})
		if err != nil {
			return err
		}
		for j := range labels.TextStyle {
			labels.TextStyle[j].Color = color.Gray{128}
			labels.TextStyle[j].Font.Size *= 0.7
			labels.TextStyle[j].XAlign = -0.5
		}
		labels.Offset = vg.Point{Y: vg.Points(4)}
		p.Add(labels)
	}

	p.Y.Min = 0
	p.Y.Max *= 1.3
	return savePlot(c, p)
}

// xyValues presents the heights of a series to plotter.NewBarChart, which
// places bars at consecutive integers offset by XMin.
type xyValues struct{ plotter.XYs }

func (v xyValues) Value(i int) float64 { return v.XYs[i].Y }

func savePlot(c *chart, p *plot.Plot) error {
	if err := os.MkdirAll("charts", 0755); err != nil {
		return err
	}
	return p.Save(9*vg.Inch, 6*vg.Inch, "charts/"+c.FileBasename+".svg")
}

func formatRatio(n, d float64) string {
	switch {
	case d == 0:
		if n == 0 {
			return "0%"
		}
		return fmt.Sprintf("%.2g", n)
	case math.Abs(n/d) < 1:
		return fmt.Sprintf("%.2g%%", math.Round(100*n/d))
	default:
		return fmt.Sprintf("%.2gx", n/d)
	}
}

func formatSummary(s *benchmath.Summary, class benchunit.Class) string {
	center := benchunit.Scale(s.Center, class)
	plus := formatRatio(s.Hi-s.Center, s.Center)
	minus := formatRatio(s.Center-s.Lo, s.Center)
	if plus == minus {
		return fmt.Sprintf("%s\n+/-\n%s", center, plus)
	}
	return fmt.Sprintf("%s\n+%s\n-%s", center, plus, minus)
}
