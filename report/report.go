// Package report turns a trainer.History into console lines, CSV and PNG plots.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"sgdnet/trainer"

	"github.com/pkg/errors"
)

// Printer writes one line per epoch.
type Printer struct {
	w     io.Writer
	total int
}

// NewPrinter returns a Printer for a run of totalEpochs epochs.
func NewPrinter(w io.Writer, totalEpochs int) *Printer {
	return &Printer{w: w, total: totalEpochs}
}

// Epoch prints m in the form
//
//	Epoch 3/10 => TrainLoss=0.2311, ValLoss=0.2562, ValAcc=92.41%, Time=4.18s
func (p *Printer) Epoch(m trainer.EpochMetrics) {
	fmt.Fprintf(p.w, "Epoch %d/%d => TrainLoss=%.4f, ValLoss=%.4f, ValAcc=%.2f%%, Time=%.2fs\n",
		m.Epoch, p.total, m.TrainLoss, m.ValLoss, m.ValAccuracy*100, m.Seconds)
}

var csvHeader = []string{"epoch", "train_loss", "val_loss", "val_accuracy", "seconds"}

// WriteCSV writes the history with a header row.
func WriteCSV(w io.Writer, h trainer.History) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for i := 0; i < h.Len(); i++ {
		m := h.At(i)
		record := []string{strconv.Itoa(m.Epoch), f(m.TrainLoss), f(m.ValLoss), f(m.ValAccuracy), f(m.Seconds)}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write epoch %d", m.Epoch)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
