package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for different operations
type TimingStats struct {
	TotalTime           time.Duration
	DataLoadingTime     time.Duration
	ModelInitTime       time.Duration
	ForwardPassTime     time.Duration
	BackwardPassTime    time.Duration
	LossComputationTime time.Duration
	EvaluationTime      time.Duration
	PlotTime            time.Duration
}

func percent(part, whole time.Duration) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// PrintTimingStats prints detailed timing statistics.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, steps int) {
	if !Verbose || stats == nil {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total training time: %v\n", stats.TotalTime)
	if steps > 0 {
		fmt.Fprintf(Output, "Average time per step: %v\n", stats.TotalTime/time.Duration(steps))
	}
	fmt.Fprintf(Output, "Steps completed: %d\n", steps)
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	fmt.Fprintf(Output, "  Data loading: %v (%.1f%%)\n", stats.DataLoadingTime, percent(stats.DataLoadingTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Model initialization: %v (%.1f%%)\n", stats.ModelInitTime, percent(stats.ModelInitTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Forward pass: %v (%.1f%%)\n", stats.ForwardPassTime, percent(stats.ForwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Loss computation: %v (%.1f%%)\n", stats.LossComputationTime, percent(stats.LossComputationTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Backward pass + update: %v (%.1f%%)\n", stats.BackwardPassTime, percent(stats.BackwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Validation: %v (%.1f%%)\n", stats.EvaluationTime, percent(stats.EvaluationTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Plotting: %v (%.1f%%)\n", stats.PlotTime, percent(stats.PlotTime, stats.TotalTime))
	if steps > 0 {
		fmt.Fprintln(Output, "\nPerformance metrics:")
		fmt.Fprintf(Output, "  Average forward pass time: %v\n", stats.ForwardPassTime/time.Duration(steps))
		fmt.Fprintf(Output, "  Average backward pass time: %v\n", stats.BackwardPassTime/time.Duration(steps))
		fmt.Fprintf(Output, "  Average forward pass: %.1fµs\n", DurationUS(stats.ForwardPassTime)/float64(steps))
	}
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
