package trainer

// EpochMetrics is the record appended to the history after each epoch.
type EpochMetrics struct {
	Epoch       int
	TrainLoss   float64
	ValLoss     float64
	ValAccuracy float64
	Seconds     float64
}

// History holds one entry per completed epoch in five parallel sequences.
type History struct {
	Epochs      []int
	TrainLoss   []float64
	ValLoss     []float64
	ValAccuracy []float64
	Seconds     []float64
}

// Len returns the number of recorded epochs.
func (h History) Len() int { return len(h.Epochs) }

// At returns the metrics of the i-th recorded epoch.
func (h History) At(i int) EpochMetrics {
	return EpochMetrics{
		Epoch:       h.Epochs[i],
		TrainLoss:   h.TrainLoss[i],
		ValLoss:     h.ValLoss[i],
		ValAccuracy: h.ValAccuracy[i],
		Seconds:     h.Seconds[i],
	}
}

func (h *History) append(m EpochMetrics) {
	h.Epochs = append(h.Epochs, m.Epoch)
	h.TrainLoss = append(h.TrainLoss, m.TrainLoss)
	h.ValLoss = append(h.ValLoss, m.ValLoss)
	h.ValAccuracy = append(h.ValAccuracy, m.ValAccuracy)
	h.Seconds = append(h.Seconds, m.Seconds)
}

func (h History) clone() History {
	return History{
		Epochs:      append([]int(nil), h.Epochs...),
		TrainLoss:   append([]float64(nil), h.TrainLoss...),
		ValLoss:     append([]float64(nil), h.ValLoss...),
		ValAccuracy: append([]float64(nil), h.ValAccuracy...),
		Seconds:     append([]float64(nil), h.Seconds...),
	}
}
