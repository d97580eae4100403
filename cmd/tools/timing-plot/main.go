// Command timing-plot charts a recorded session's decision timing: the
// milliseconds into each cycle at which the agent decided, with timing
// anomalies marked.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"github.com/banshee-data/rcss.agent/internal/recorder"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	dbPath    = flag.String("db", "", "Recorder sqlite database")
	sessionID = flag.String("session", "", "Session ID (default: latest)")
	pngPath   = flag.String("out", "", "Write a PNG chart to this path")
	htmlPath  = flag.String("html", "", "Write an interactive HTML chart to this path")
)

var anomalyColors = []color.RGBA{
	{R: 220, G: 50, B: 47, A: 255},
	{R: 38, G: 139, B: 210, A: 255},
	{R: 133, G: 153, B: 0, A: 255},
	{R: 211, G: 54, B: 130, A: 255},
	{R: 181, G: 137, B: 0, A: 255},
}

var anomalyHex = []string{"#dc322f", "#268bd2", "#859900", "#d33682", "#b58900"}

func main() {
	flag.Parse()
	if *dbPath == "" {
		log.Fatalf("-db is required")
	}

	rec, err := recorder.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *dbPath, err)
	}
	defer rec.Close()

	id := *sessionID
	if id == "" {
		sess, err := rec.LatestSession()
		if errors.Is(err, recorder.ErrNoSession) {
			log.Fatalf("no sessions recorded in %s", *dbPath)
		}
		if err != nil {
			log.Fatalf("failed to find latest session: %v", err)
		}
		id = sess.ID
	}

	decisions, err := rec.Decisions(id)
	if err != nil {
		log.Fatalf("failed to load decisions: %v", err)
	}
	anomalies, err := rec.Anomalies(id)
	if err != nil {
		log.Fatalf("failed to load anomalies: %v", err)
	}

	tl := buildTimeline(decisions, anomalies)
	s := tl.summarize()
	fmt.Printf("session %s: %d decisions (%d acted), elapsed %.1f ± %.1f ms\n",
		id, s.Decisions, s.Acted, s.MeanMS, s.StdDevMS)
	for _, kind := range sortedKinds(tl.Anomalies) {
		fmt.Printf("  %-24s %d\n", kind, s.Anomalies[kind])
	}

	if *pngPath != "" {
		if err := savePNG(tl, id, *pngPath); err != nil {
			log.Fatalf("failed to write %s: %v", *pngPath, err)
		}
		log.Printf("wrote %s", *pngPath)
	}
	if *htmlPath != "" {
		if err := saveHTML(tl, id, *htmlPath); err != nil {
			log.Fatalf("failed to write %s: %v", *htmlPath, err)
		}
		log.Printf("wrote %s", *htmlPath)
	}
}

func savePNG(tl timeline, id, path string) error {
	p := plot.New()
	p.Title.Text = "Decision timing " + id
	p.X.Label.Text = "decision"
	p.Y.Label.Text = "elapsed in cycle (ms)"

	pts := make(plotter.XYs, len(tl.ElapsedMS))
	for i, ms := range tl.ElapsedMS {
		pts[i] = plotter.XY{X: float64(i), Y: ms}
	}
	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("elapsed", line)
	}

	for i, kind := range sortedKinds(tl.Anomalies) {
		marks := make(plotter.XYs, 0, len(tl.Anomalies[kind]))
		for _, idx := range tl.Anomalies[kind] {
			marks = append(marks, plotter.XY{X: float64(idx), Y: tl.ElapsedMS[idx]})
		}
		sc, err := plotter.NewScatter(marks)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = anomalyColors[i%len(anomalyColors)]
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		p.Add(sc)
		p.Legend.Add(kind, sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}

func saveHTML(tl timeline, id, path string) error {
	x := make([]string, len(tl.Labels))
	copy(x, tl.Labels)
	y := make([]opts.LineData, len(tl.ElapsedMS))
	for i, ms := range tl.ElapsedMS {
		y[i] = opts.LineData{Value: ms}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Decision timing", Width: "100%", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{Title: "Decision timing", Subtitle: "session " + id}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms"}),
	)
	line.SetXAxis(x).AddSeries("elapsed", y)

	for i, kind := range sortedKinds(tl.Anomalies) {
		data := make([]opts.ScatterData, 0, len(tl.Anomalies[kind]))
		for _, idx := range tl.Anomalies[kind] {
			data = append(data, opts.ScatterData{Value: []interface{}{tl.Labels[idx], tl.ElapsedMS[idx]}})
		}
		sc := charts.NewScatter()
		sc.AddSeries(kind, data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: anomalyHex[i%len(anomalyHex)]}))
		line.Overlap(sc)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
