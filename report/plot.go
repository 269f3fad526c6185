package report

import (
	"image/color"
	"os"

	"sgdnet/trainer"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	blue   = color.RGBA{B: 255, A: 255}
	red    = color.RGBA{R: 255, A: 255}
	green  = color.RGBA{G: 160, A: 255}
	purple = color.RGBA{R: 128, B: 128, A: 255}
)

// ErrNoEpochs is returned when plotting an empty history.
var ErrNoEpochs = errors.New("history has no epochs")

func series(epochs []int, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(epochs))
	for i := range epochs {
		pts[i].X = float64(epochs[i])
		pts[i].Y = ys[i]
	}
	return pts
}

func addLine(p *plot.Plot, label string, c color.Color, pts plotter.XYs) error {
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return errors.Wrapf(err, "%s series", label)
	}
	line.Color = c
	points.Color = c
	points.Shape = draw.CircleGlyph{}
	p.Add(line, points)
	p.Legend.Add(label, line, points)
	return nil
}

// PlotMetrics writes a two-panel PNG to path: training and validation loss
// on top, validation accuracy below.
func PlotMetrics(h trainer.History, path string) error {
	if h.Len() == 0 {
		return ErrNoEpochs
	}

	loss := plot.New()
	loss.Title.Text = "Training Metrics Over Epochs"
	loss.X.Label.Text = "Epoch"
	loss.Y.Label.Text = "Loss"
	loss.Add(plotter.NewGrid())
	if err := addLine(loss, "Train Loss", blue, series(h.Epochs, h.TrainLoss)); err != nil {
		return err
	}
	if err := addLine(loss, "Val Loss", red, series(h.Epochs, h.ValLoss)); err != nil {
		return err
	}

	acc := plot.New()
	acc.X.Label.Text = "Epoch"
	acc.Y.Label.Text = "Accuracy"
	acc.Y.Min, acc.Y.Max = 0, 1
	acc.Add(plotter.NewGrid())
	if err := addLine(acc, "Val Accuracy", green, series(h.Epochs, h.ValAccuracy)); err != nil {
		return err
	}

	img := vgimg.New(8*vg.Inch, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      5 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}
	plots := [][]*plot.Plot{{loss}, {acc}}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create metrics plot")
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return errors.Wrap(err, "encode metrics plot")
	}
	return errors.Wrap(f.Close(), "close metrics plot")
}

// PlotEpochTime writes the wall-clock seconds per epoch to path. The image
// format follows the file extension.
func PlotEpochTime(h trainer.History, path string) error {
	if h.Len() == 0 {
		return ErrNoEpochs
	}
	p := plot.New()
	p.Title.Text = "Epoch Time"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Seconds"
	p.Add(plotter.NewGrid())
	if err := addLine(p, "Time per Epoch (sec)", purple, series(h.Epochs, h.Seconds)); err != nil {
		return err
	}
	return errors.Wrap(p.Save(8*vg.Inch, 4*vg.Inch, path), "save epoch time plot")
}
