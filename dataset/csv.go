package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// LoadCSV reads MNIST-style CSV rows: the first value is the label, the
// next inputs values are pixel intensities in [0,255], scaled to [0,1].
// A non-numeric first row is treated as a header and skipped.
func LoadCSV(r io.Reader, inputs int) (*Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = inputs + 1
	cr.ReuseRecord = true

	s := &Set{}
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, errors.Wrapf(err, "line %d: parsing label", line)
		}

		row := make([]float64, inputs)
		for i := range row {
			x, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: parsing input %d", line, i)
			}
			row[i] = x / 255.0
		}
		s.Features = append(s.Features, row)
		s.Labels = append(s.Labels, label)
	}
	return s, nil
}
