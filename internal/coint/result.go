package coint

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Confidence selects a column of the critical value tables.
type Confidence int

const (
	Conf90 Confidence = iota
	Conf95
	Conf99
)

func (c Confidence) String() string {
	switch c {
	case Conf90:
		return "90%"
	case Conf95:
		return "95%"
	case Conf99:
		return "99%"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// Result holds the outcome of a Johansen test.
//
// All per-hypothesis slices are indexed by r, the hypothesized
// cointegration rank: entry r tests "rank <= r" against the alternative.
type Result struct {
	// Eigenvalues in descending order.
	Eigenvalues []float64

	// Eigenvectors holds one cointegrating vector per column, ordered to
	// match Eigenvalues and normalized against the level residual
	// covariance.
	Eigenvectors *mat.Dense

	// TraceStats and MaxEigStats are the likelihood ratio statistics.
	TraceStats  []float64
	MaxEigStats []float64

	// CriticalTrace and CriticalMaxEig give the 90/95/99 critical values
	// per hypothesis. All zero when no table covers the det order.
	CriticalTrace  [][3]float64
	CriticalMaxEig [][3]float64

	// Nobs is the effective sample size after lagging and differencing.
	Nobs int

	DetOrder int
	KARDiff  int
}

// NumSeries returns the number of series tested.
func (r *Result) NumSeries() int { return len(r.Eigenvalues) }

// HasCriticalValues reports whether the critical value tables cover the
// det order the test ran with.
func (r *Result) HasCriticalValues() bool {
	return r.DetOrder == -1 || r.DetOrder == 0
}

// Rank returns the cointegration rank implied by the trace test at the
// given confidence: the first hypothesized rank whose trace statistic
// does not exceed its critical value, or the number of series if every
// hypothesis is rejected.
func (r *Result) Rank(conf Confidence) int {
	for i, stat := range r.TraceStats {
		if stat <= r.CriticalTrace[i][conf] {
			return i
		}
	}
	return len(r.TraceStats)
}

// RankMaxEig is Rank using the maximum-eigenvalue statistic instead.
func (r *Result) RankMaxEig(conf Confidence) int {
	for i, stat := range r.MaxEigStats {
		if stat <= r.CriticalMaxEig[i][conf] {
			return i
		}
	}
	return len(r.MaxEigStats)
}

// Weights returns cointegrating vector vec as a slice, one weight per
// series in input order.
func (r *Result) Weights(vec int) ([]float64, error) {
	n := r.NumSeries()
	if vec < 0 || vec >= n {
		return nil, fmt.Errorf("eigenvector index %d out of range [0, %d)", vec, n)
	}
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = r.Eigenvectors.At(i, vec)
	}
	return weights, nil
}

// Spread projects a price panel onto cointegrating vector vec: the
// returned series is the weighted sum of each row's prices. data must be
// observation-major with one column per tested series, in the order the
// test saw them.
func (r *Result) Spread(data [][]float64, vec int) ([]float64, error) {
	weights, err := r.Weights(vec)
	if err != nil {
		return nil, err
	}

	spread := make([]float64, len(data))
	for t, row := range data {
		if len(row) != len(weights) {
			return nil, fmt.Errorf("row %d has %d values, want %d", t, len(row), len(weights))
		}
		s := 0.0
		for i, w := range weights {
			s += row[i] * w
		}
		spread[t] = s
	}
	return spread, nil
}

// HedgeRatios returns cointegrating vector vec rescaled so the first
// series has weight 1, the usual quoting convention for pair and basket
// trades.
func (r *Result) HedgeRatios(vec int) ([]float64, error) {
	weights, err := r.Weights(vec)
	if err != nil {
		return nil, err
	}
	if weights[0] == 0 {
		return nil, fmt.Errorf("eigenvector %d has zero weight on the first series", vec)
	}
	ratios := make([]float64, len(weights))
	for i, w := range weights {
		ratios[i] = w / weights[0]
	}
	return ratios, nil
}

// Summary renders the test outcome as a fixed-width report. symbols
// labels the series; pass nil to label them by index.
func (r *Result) Summary(symbols []string) string {
	n := r.NumSeries()
	if len(symbols) != n {
		symbols = make([]string, n)
		for i := range symbols {
			symbols[i] = fmt.Sprintf("series%d", i)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Johansen cointegration test (det order %d, %d lags, %d obs)\n",
		r.DetOrder, r.KARDiff, r.Nobs)
	fmt.Fprintf(&b, "series: %s\n\n", strings.Join(symbols, ", "))

	b.WriteString("trace statistic\n")
	b.WriteString("  r<=   stat        90%       95%       99%\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "  %-4d %9.4f %9.4f %9.4f %9.4f%s\n",
			i, r.TraceStats[i],
			r.CriticalTrace[i][Conf90], r.CriticalTrace[i][Conf95], r.CriticalTrace[i][Conf99],
			rejectionMark(r.TraceStats[i], r.CriticalTrace[i]))
	}

	b.WriteString("\nmax eigenvalue statistic\n")
	b.WriteString("  r<=   stat        90%       95%       99%\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "  %-4d %9.4f %9.4f %9.4f %9.4f%s\n",
			i, r.MaxEigStats[i],
			r.CriticalMaxEig[i][Conf90], r.CriticalMaxEig[i][Conf95], r.CriticalMaxEig[i][Conf99],
			rejectionMark(r.MaxEigStats[i], r.CriticalMaxEig[i]))
	}

	if r.HasCriticalValues() {
		fmt.Fprintf(&b, "\ntrace rank: %d at 90%%, %d at 95%%, %d at 99%%\n",
			r.Rank(Conf90), r.Rank(Conf95), r.Rank(Conf99))
	} else {
		b.WriteString("\nno critical value table for this det order; rank undecided\n")
	}

	b.WriteString("\neigenvalues and cointegrating vectors\n")
	for v := 0; v < n; v++ {
		weights, _ := r.Weights(v)
		parts := make([]string, n)
		for i, w := range weights {
			parts[i] = fmt.Sprintf("%+.6f %s", w, symbols[i])
		}
		fmt.Fprintf(&b, "  lambda=%.6f  %s\n", r.Eigenvalues[v], strings.Join(parts, "  "))
	}

	return b.String()
}

// rejectionMark annotates a statistic with the highest confidence at
// which it rejects its hypothesis.
func rejectionMark(stat float64, crit [3]float64) string {
	switch {
	case crit[Conf99] > 0 && stat > crit[Conf99]:
		return "  ***"
	case crit[Conf95] > 0 && stat > crit[Conf95]:
		return "  **"
	case crit[Conf90] > 0 && stat > crit[Conf90]:
		return "  *"
	default:
		return ""
	}
}
