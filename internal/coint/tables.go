package coint

// Critical values for the Johansen trace and maximum-eigenvalue
// statistics at the 90%, 95% and 99% levels, tabulated per number of
// variables up to 12 (Osterwald-Lenum tables as distributed with the
// jplv econometrics toolbox). Row n-1 covers an n-variable system.
//
// The det order 1 case (constant plus linear trend) has no table here;
// lookups for it return zeros so callers can still read the statistics.

// traceNoDet: trace statistic, no deterministic term (det order -1).
var traceNoDet = [maxSeries][3]float64{
	{2.9762, 4.1296, 6.9406},
	{10.4741, 12.3212, 16.3640},
	{21.7781, 24.2761, 29.5147},
	{37.0339, 40.1749, 46.5716},
	{56.2839, 60.0627, 67.6367},
	{79.5329, 83.9383, 92.7136},
	{106.7351, 111.7797, 121.7375},
	{137.9954, 143.6691, 154.7977},
	{173.2292, 179.5199, 191.8122},
	{212.4721, 219.4051, 232.8291},
	{255.6732, 263.2603, 277.9962},
	{302.9054, 311.1288, 326.9716},
}

// traceConst: trace statistic, constant term (det order 0).
var traceConst = [maxSeries][3]float64{
	{2.7055, 3.8415, 6.6349},
	{13.4294, 15.4943, 19.9349},
	{27.0669, 29.7961, 35.4628},
	{44.4929, 47.8545, 54.6815},
	{65.8202, 69.8189, 77.8202},
	{91.1090, 95.7542, 104.9637},
	{120.3673, 125.6185, 135.9825},
	{153.6341, 159.5290, 171.0905},
	{190.8714, 197.3772, 210.0366},
	{232.1030, 239.2468, 253.2526},
	{277.3740, 285.1402, 300.2821},
	{326.5354, 334.9795, 351.2150},
}

// maxEigNoDet: maximum-eigenvalue statistic, no deterministic term.
var maxEigNoDet = [maxSeries][3]float64{
	{2.9762, 4.1296, 6.9406},
	{9.4748, 11.2246, 15.0923},
	{15.7175, 17.7961, 22.2519},
	{21.8370, 24.1592, 29.0609},
	{27.9160, 30.4428, 35.7359},
	{33.9271, 36.6301, 42.2333},
	{39.9085, 42.7679, 48.6606},
	{45.8930, 48.8795, 55.0335},
	{51.8528, 54.9629, 61.3449},
	{57.7954, 61.0404, 67.6415},
	{63.7248, 67.0756, 73.8856},
	{69.6513, 73.0946, 80.0937},
}

// maxEigConst: maximum-eigenvalue statistic, constant term.
var maxEigConst = [maxSeries][3]float64{
	{2.7055, 3.8415, 6.6349},
	{12.2971, 14.2639, 18.5200},
	{18.8928, 21.1314, 25.8650},
	{25.1236, 27.5858, 32.7172},
	{31.2379, 33.8777, 39.3693},
	{37.2786, 40.0763, 45.8662},
	{43.2947, 46.2299, 52.3069},
	{49.2855, 52.3622, 58.6634},
	{55.2412, 58.4332, 64.9960},
	{61.2041, 64.5040, 71.2525},
	{67.1307, 70.5392, 77.4877},
	{73.0563, 76.5734, 83.7105},
}

// traceCriticalValues returns the 90/95/99 critical values of the trace
// statistic for an n-variable system under detOrder.
func traceCriticalValues(n, detOrder int) [3]float64 {
	if n < 1 || n > maxSeries {
		return [3]float64{}
	}
	switch detOrder {
	case -1:
		return traceNoDet[n-1]
	case 0:
		return traceConst[n-1]
	default:
		return [3]float64{}
	}
}

// maxEigCriticalValues returns the 90/95/99 critical values of the
// maximum-eigenvalue statistic for an n-variable system under detOrder.
func maxEigCriticalValues(n, detOrder int) [3]float64 {
	if n < 1 || n > maxSeries {
		return [3]float64{}
	}
	switch detOrder {
	case -1:
		return maxEigNoDet[n-1]
	case 0:
		return maxEigConst[n-1]
	default:
		return [3]float64{}
	}
}
