package nn

import (
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlotHistory renders accuracy and loss curves side by side, train against
// validation when present, and writes the figure to path as PNG.
func PlotHistory(h *History, path string) error {
	if h == nil || len(h.Epochs) == 0 {
		return errors.New("plot history: no epochs recorded")
	}
	acc, err := historyPanel("Accuracy", h.Epochs, h.Accuracy, h.ValAccuracy)
	if err != nil {
		return fmt.Errorf("plot history: %w", err)
	}
	loss, err := historyPanel("Loss", h.Epochs, h.Loss, h.ValLoss)
	if err != nil {
		return fmt.Errorf("plot history: %w", err)
	}

	img := vgimg.New(12*vg.Inch, 4*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 1, Cols: 2,
		PadX:   vg.Millimeter * 5,
		PadTop: vg.Millimeter * 2, PadBottom: vg.Millimeter * 2,
		PadLeft: vg.Millimeter * 2, PadRight: vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{{acc, loss}}, tiles, dc)
	acc.Draw(canvases[0][0])
	loss.Draw(canvases[0][1])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plot history: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("plot history: write %s: %w", path, err)
	}
	return f.Close()
}

func historyPanel(metric string, epochs []int, train, val []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Model " + metric
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = metric
	p.Legend.Top = true

	series := []any{"Training " + metric, points(epochs, train)}
	if len(val) > 0 {
		series = append(series, "Validation "+metric, points(epochs, val))
	}
	if err := plotutil.AddLinePoints(p, series...); err != nil {
		return nil, err
	}
	return p, nil
}

func points(epochs []int, values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(epochs[i])
		xys[i].Y = v
	}
	return xys
}
