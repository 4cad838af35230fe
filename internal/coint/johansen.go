// Package coint implements the Johansen cointegration test over aligned
// price panels.
//
// The numerical work (least-squares residual regressions, the
// generalized eigenproblem and its Cholesky normalization) is delegated
// to gonum; this package contributes the VECM bookkeeping around it and
// the published critical value tables for the trace and
// maximum-eigenvalue statistics.
package coint

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// maxSeries is the largest system the critical value tables cover.
	maxSeries = 12

	// epsEigen guards the log(1 - lambda) terms against eigenvalues
	// that round to 1 or drift slightly outside [0, 1).
	epsEigen = 1e-12
)

// Johansen runs the Johansen cointegration procedure on a panel of time
// series.
//
// data is observation-major: data[t][i] is series i at time t. detOrder
// selects the deterministic term (-1 none, 0 constant, 1 constant and
// linear trend) and kARDiff is the number of lagged differences in the
// VECM. Critical values are tabulated for detOrder -1 and 0; detOrder 1
// is computed but its critical values are reported as zero.
func Johansen(data [][]float64, detOrder, kARDiff int) (*Result, error) {
	nobs := len(data)
	if nobs == 0 {
		return nil, fmt.Errorf("empty panel")
	}
	neqs := len(data[0])

	if neqs < 2 {
		return nil, fmt.Errorf("johansen test needs at least 2 series, got %d", neqs)
	}
	if neqs > maxSeries {
		return nil, fmt.Errorf("johansen test supports at most %d series, got %d", maxSeries, neqs)
	}
	if detOrder < -1 || detOrder > 1 {
		return nil, fmt.Errorf("det order must be -1, 0 or 1, got %d", detOrder)
	}
	if kARDiff < 0 {
		return nil, fmt.Errorf("lag order cannot be negative, got %d", kARDiff)
	}
	// The residual regressions drop kARDiff+1 observations; anything
	// shorter than that plus a margin for the regressors is degenerate.
	if nobs-kARDiff-1 < 2*neqs+kARDiff*neqs {
		return nil, fmt.Errorf("not enough observations (%d) for %d series with %d lags", nobs, neqs, kARDiff)
	}
	for t := range data {
		if len(data[t]) != neqs {
			return nil, fmt.Errorf("ragged panel: row %d has %d values, want %d", t, len(data[t]), neqs)
		}
	}

	x := mat.NewDense(nobs, neqs, nil)
	for t := range data {
		x.SetRow(t, data[t])
	}

	// Deterministic term handling follows the standard procedure: the
	// levels are detrended by detOrder, the regressions by f.
	f := 0
	if detOrder == -1 {
		f = -1
	}
	x = detrend(x, detOrder)

	dx := diff(x)
	var z *mat.Dense
	if kARDiff > 0 {
		z = lagMatrix(dx, kARDiff)
		z = trimRows(z, kARDiff)
		z = detrend(z, f)
	}

	dxt := detrend(trimRows(dx, kARDiff), f)
	r0t := residuals(dxt, z)

	// Lagged levels aligned with the trimmed differences.
	lx := x.Slice(1, nobs-kARDiff, 0, neqs).(*mat.Dense)
	lxt := detrend(mat.DenseCopyOf(lx), f)
	rkt := residuals(lxt, z)

	tEff, _ := rkt.Dims()

	// Product moment matrices.
	skk := momentMatrix(rkt, rkt)
	sk0 := momentMatrix(rkt, r0t)
	s00 := momentMatrix(r0t, r0t)

	var s00inv mat.Dense
	if err := s00inv.Inverse(s00); err != nil {
		return nil, fmt.Errorf("residual covariance is singular: %w", err)
	}
	var skkinv mat.Dense
	if err := skkinv.Inverse(skk); err != nil {
		return nil, fmt.Errorf("level residual covariance is singular: %w", err)
	}

	// sig = sk0 * inv(s00) * sk0', then solve the eigenproblem of
	// inv(skk) * sig.
	var tmp, sig, a mat.Dense
	tmp.Mul(&s00inv, sk0.T())
	sig.Mul(sk0, &tmp)
	a.Mul(&skkinv, &sig)

	var eig mat.Eigen
	if !eig.Factorize(&a, mat.EigenRight) {
		return nil, fmt.Errorf("eigendecomposition failed")
	}

	values := eig.Values(nil)
	var cvec mat.CDense
	eig.VectorsTo(&cvec)

	eigenvalues := make([]float64, neqs)
	du := mat.NewDense(neqs, neqs, nil)
	for j := 0; j < neqs; j++ {
		eigenvalues[j] = real(values[j])
		for i := 0; i < neqs; i++ {
			du.Set(i, j, real(cvec.At(i, j)))
		}
	}

	// Normalize the eigenvectors so that evec' * skk * evec = I.
	dt, err := normalizeVectors(du, skk)
	if err != nil {
		return nil, err
	}

	// Order everything by eigenvalue, largest first.
	order := descendingOrder(eigenvalues)
	sorted := make([]float64, neqs)
	evec := mat.NewDense(neqs, neqs, nil)
	for j, idx := range order {
		sorted[j] = eigenvalues[idx]
		for i := 0; i < neqs; i++ {
			evec.Set(i, j, dt.At(i, idx))
		}
	}

	result := &Result{
		Eigenvalues:    sorted,
		Eigenvectors:   evec,
		TraceStats:     make([]float64, neqs),
		MaxEigStats:    make([]float64, neqs),
		CriticalTrace:  make([][3]float64, neqs),
		CriticalMaxEig: make([][3]float64, neqs),
		Nobs:           tEff,
		DetOrder:       detOrder,
		KARDiff:        kARDiff,
	}

	for i := 0; i < neqs; i++ {
		sum := 0.0
		for j := i; j < neqs; j++ {
			sum += logOneMinus(sorted[j])
		}
		result.TraceStats[i] = -float64(tEff) * sum
		result.MaxEigStats[i] = -float64(tEff) * logOneMinus(sorted[i])
		result.CriticalTrace[i] = traceCriticalValues(neqs-i, detOrder)
		result.CriticalMaxEig[i] = maxEigCriticalValues(neqs-i, detOrder)
	}

	return result, nil
}

// detrend removes a deterministic polynomial of the given order from each
// column: order -1 leaves the data alone, 0 removes the mean, 1 removes a
// fitted linear trend.
func detrend(x *mat.Dense, order int) *mat.Dense {
	if order < 0 {
		return x
	}

	rows, _ := x.Dims()
	design := mat.NewDense(rows, order+1, nil)
	for t := 0; t < rows; t++ {
		v := 1.0
		for p := 0; p <= order; p++ {
			design.Set(t, p, v)
			v *= float64(t + 1)
		}
	}
	return residuals(x, design)
}

// residuals returns y minus its least-squares projection onto the columns
// of z. A nil or empty z returns y unchanged.
func residuals(y, z *mat.Dense) *mat.Dense {
	if z == nil {
		return y
	}
	if _, cols := z.Dims(); cols == 0 {
		return y
	}

	var beta mat.Dense
	if err := beta.Solve(z, y); err != nil {
		// Collinear regressors: fall back to the pseudo-inverse path by
		// solving the normal equations with a small ridge.
		rows, cols := z.Dims()
		_ = rows
		var ztz mat.Dense
		ztz.Mul(z.T(), z)
		for i := 0; i < cols; i++ {
			ztz.Set(i, i, ztz.At(i, i)+1e-10)
		}
		var zty mat.Dense
		zty.Mul(z.T(), y)
		if err := beta.Solve(&ztz, &zty); err != nil {
			return y
		}
	}

	var fitted, resid mat.Dense
	fitted.Mul(z, &beta)
	resid.Sub(y, &fitted)
	return &resid
}

// diff returns the first difference of each column.
func diff(x *mat.Dense) *mat.Dense {
	rows, cols := x.Dims()
	out := mat.NewDense(rows-1, cols, nil)
	for t := 1; t < rows; t++ {
		for j := 0; j < cols; j++ {
			out.Set(t-1, j, x.At(t, j)-x.At(t-1, j))
		}
	}
	return out
}

// lagMatrix stacks lags 1..k of x side by side, zero-padded at the top,
// keeping the row count of x. k == 0 returns nil: gonum rejects
// zero-dimension matrices, and residuals treats nil as no regressors.
func lagMatrix(x *mat.Dense, k int) *mat.Dense {
	if k == 0 {
		return nil
	}
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols*k, nil)
	for lag := 1; lag <= k; lag++ {
		for t := lag; t < rows; t++ {
			for j := 0; j < cols; j++ {
				out.Set(t, (lag-1)*cols+j, x.At(t-lag, j))
			}
		}
	}
	return out
}

// trimRows drops the first n rows.
func trimRows(x *mat.Dense, n int) *mat.Dense {
	if n == 0 {
		return x
	}
	rows, cols := x.Dims()
	return mat.DenseCopyOf(x.Slice(n, rows, 0, cols))
}

// momentMatrix returns a' * b / rows(a).
func momentMatrix(a, b *mat.Dense) *mat.Dense {
	rows, _ := a.Dims()
	var m mat.Dense
	m.Mul(a.T(), b)
	m.Scale(1/float64(rows), &m)
	return &m
}

// normalizeVectors rescales the eigenvector basis du so that
// du' * skk * du equals the identity, using the upper Cholesky factor of
// the projected matrix.
func normalizeVectors(du, skk *mat.Dense) (*mat.Dense, error) {
	n, _ := du.Dims()

	var proj, m mat.Dense
	proj.Mul(skk, du)
	m.Mul(du.T(), &proj)

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return nil, fmt.Errorf("eigenvector normalization failed: projected matrix is not positive definite")
	}

	var u mat.TriDense
	chol.UTo(&u)

	var uinv mat.TriDense
	if err := uinv.InverseTri(&u); err != nil {
		return nil, fmt.Errorf("eigenvector normalization failed: %w", err)
	}

	var dt mat.Dense
	dt.Mul(du, &uinv)
	return &dt, nil
}

func descendingOrder(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	// Insertion sort keeps this dependency-free for a handful of values.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && values[order[j]] > values[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

func logOneMinus(lambda float64) float64 {
	arg := 1 - lambda
	if arg < epsEigen {
		arg = epsEigen
	}
	return math.Log(arg)
}
