package coint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func craftedResult() *Result {
	return &Result{
		Eigenvalues: []float64{0.10, 0.02},
		Eigenvectors: mat.NewDense(2, 2, []float64{
			2.0, 1.0,
			-4.0, 3.0,
		}),
		TraceStats:  []float64{25.0, 3.0},
		MaxEigStats: []float64{22.0, 3.0},
		CriticalTrace: [][3]float64{
			{13.4294, 15.4943, 19.9349},
			{2.7055, 3.8415, 6.6349},
		},
		CriticalMaxEig: [][3]float64{
			{12.2971, 14.2639, 18.5200},
			{2.7055, 3.8415, 6.6349},
		},
		Nobs:     250,
		DetOrder: 0,
		KARDiff:  1,
	}
}

func TestRank(t *testing.T) {
	r := craftedResult()

	// 25.0 rejects r<=0 at all levels; 3.0 rejects r<=1 at 90% only.
	assert.Equal(t, 2, r.Rank(Conf90))
	assert.Equal(t, 1, r.Rank(Conf95))
	assert.Equal(t, 1, r.Rank(Conf99))

	assert.Equal(t, 2, r.RankMaxEig(Conf90))
	assert.Equal(t, 1, r.RankMaxEig(Conf95))
}

func TestWeightsAndSpread(t *testing.T) {
	r := craftedResult()

	w0, err := r.Weights(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.0, -4.0}, w0)

	w1, err := r.Weights(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 3.0}, w1)

	_, err = r.Weights(2)
	assert.Error(t, err)

	data := [][]float64{
		{10, 1},
		{20, 2},
	}
	spread, err := r.Spread(data, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{16, 32}, spread)

	_, err = r.Spread([][]float64{{1, 2, 3}}, 0)
	assert.ErrorContains(t, err, "row 0")
}

func TestHedgeRatios(t *testing.T) {
	r := craftedResult()

	ratios, err := r.HedgeRatios(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, -2.0}, ratios)

	r.Eigenvectors.Set(0, 0, 0)
	_, err = r.HedgeRatios(0)
	assert.ErrorContains(t, err, "zero weight")
}

func TestSummary(t *testing.T) {
	r := craftedResult()
	s := r.Summary([]string{"BTCUSDT", "ETHUSDT"})

	assert.Contains(t, s, "Johansen cointegration test")
	assert.Contains(t, s, "BTCUSDT, ETHUSDT")
	assert.Contains(t, s, "trace statistic")
	assert.Contains(t, s, "max eigenvalue statistic")
	assert.Contains(t, s, "trace rank: 2 at 90%, 1 at 95%, 1 at 99%")
	assert.Contains(t, s, "lambda=0.100000")

	// Mismatched labels fall back to indexed names.
	s = r.Summary(nil)
	assert.Contains(t, s, "series0, series1")
}

func TestConfidenceString(t *testing.T) {
	assert.Equal(t, "90%", Conf90.String())
	assert.Equal(t, "95%", Conf95.String())
	assert.Equal(t, "99%", Conf99.String())
}
