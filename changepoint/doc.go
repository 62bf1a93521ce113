// Package changepoint partitions a series into statistically homogeneous
// regimes by penalised cost minimisation.
//
// Segment solves the optimal partitioning problem exactly with PELT pruning:
//
//	model, _ := changepoint.NewCostModel(changepoint.KernelRBF)
//	seg, err := changepoint.Segment(ctx, series, model, changepoint.Options{
//	    Penalty:          15,
//	    MinSegmentLength: 2,
//	})
//	for _, d := range seg.Dates {
//	    fmt.Println("regime change on", d.Format("2006-01-02"))
//	}
//
// Three cost families are built in: kernel_rbf reacts to any change in
// distribution, mean_shift to changes in level, and variance_shift to
// changes in level or volatility. Any CostModel implementation can be passed
// to Segment.
//
// Larger penalties give fewer change points. Setting Options.Exhaustive
// evaluates every predecessor, which is slower and returns the same answer.
package changepoint
