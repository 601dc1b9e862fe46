// Package risk computes cross-asset risk decompositions of a portfolio:
// covariance and correlation matrices, concentration, Value-at-Risk and
// liquidity aggregation.
package risk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/pkg/formulas"
)

// Defaults and bounds of the risk parameters
const (
	DefaultConfidence        = 0.95
	DefaultHorizonPeriods    = 1
	WeightTolerance          = 1e-6
	HighCorrelationThreshold = 0.80 // 80% correlation is considered "high"
)

// Input is one portfolio's aligned return series and weights
type Input struct {
	Series         []domain.ReturnSeries
	Weights        map[string]float64
	PortfolioValue float64
	Confidence     float64 // (0.5, 1), 0 means DefaultConfidence
	HorizonPeriods int     // VaR horizon in periods, 0 means DefaultHorizonPeriods
	// LiquidityTags are externally supplied per-instrument liquidity scores (0..10).
	// Nil skips liquidity scoring; a partial map is an error.
	LiquidityTags map[string]float64
}

// Analyze computes the RiskResult of a portfolio.
//
// Fails with EmptyPortfolioError for no series, SeriesAlignmentError when the
// series do not share timestamps, InsufficientDataError for fewer than two
// complete observations and ErrInvalidWeights when the weights do not match
// the series or do not sum to 1.
func Analyze(in Input) (*domain.RiskResult, error) {
	if len(in.Series) == 0 {
		return nil, &domain.EmptyPortfolioError{}
	}
	if err := domain.CheckAllAligned(in.Series); err != nil {
		return nil, err
	}

	confidence := in.Confidence
	if confidence == 0 {
		confidence = DefaultConfidence
	}
	if confidence <= 0.5 || confidence >= 1 {
		return nil, fmt.Errorf("VaR confidence %v outside (0.5, 1)", confidence)
	}
	horizon := in.HorizonPeriods
	if horizon == 0 {
		horizon = DefaultHorizonPeriods
	}
	if horizon < 0 {
		return nil, fmt.Errorf("VaR horizon %d must be positive", horizon)
	}

	ids := make([]string, len(in.Series))
	for i, s := range in.Series {
		ids[i] = s.InstrumentID
	}
	w, err := weightVector(ids, in.Weights)
	if err != nil {
		return nil, err
	}

	obs, rows := observations(in.Series)
	if rows < 2 {
		return nil, &domain.InsufficientDataError{Op: "covariance matrix", Required: 2, Got: rows}
	}

	cov := Covariance(obs)
	corr := Correlation(cov)

	portVar := mat.Inner(w, cov, w)
	portVol := math.Sqrt(math.Max(portVar, 0))

	var mean float64
	for j := range ids {
		mean += w.AtVec(j) * stat.Mean(mat.Col(nil, j, obs), nil)
	}

	portfolioReturns := make([]float64, rows)
	for t := 0; t < rows; t++ {
		portfolioReturns[t] = mat.Dot(obs.RowView(t), w)
	}

	result := &domain.RiskResult{
		InstrumentIDs:       ids,
		Covariance:          toRows(cov),
		Correlation:         toRows(corr),
		Concentration:       formulas.HerfindahlIndex(w.RawVector().Data),
		MeanReturn:          mean,
		PortfolioVolatility: portVol,
		PortfolioValue:      in.PortfolioValue,
		Confidence:          confidence,
		HorizonPeriods:      horizon,
		ValueAtRisk:         formulas.ParametricVaR(in.PortfolioValue, mean, portVol, confidence, horizon),
		HistoricalVaR:       formulas.HistoricalVaR(portfolioReturns, confidence),
		CVaR:                formulas.CalculateCVaR(portfolioReturns, confidence),
		HighCorrelations:    highCorrelations(ids, corr, HighCorrelationThreshold),
	}

	if in.LiquidityTags != nil {
		score, err := LiquidityScore(in.Weights, in.LiquidityTags)
		if err != nil {
			return nil, err
		}
		result.LiquidityScore = score
		result.OverallRiskScore = OverallRiskScore(result.Concentration, score)
	}

	return result, nil
}

// Covariance returns the sample (n-1) covariance of the observation columns.
// Columns with zero variance get an exactly zero row and column.
func Covariance(obs *mat.Dense) *mat.SymDense {
	cov := &mat.SymDense{}
	stat.CovarianceMatrix(cov, obs, nil)

	_, n := obs.Dims()
	for j := 0; j < n; j++ {
		if formulas.IsConstant(mat.Col(nil, j, obs)) {
			for k := 0; k < n; k++ {
				cov.SetSym(j, k, 0)
			}
		}
	}
	return cov
}

// Correlation normalizes a covariance matrix by the product of standard deviations.
// The diagonal is 1; an instrument with zero variance correlates 0 with every other.
func Correlation(cov *mat.SymDense) *mat.SymDense {
	n := cov.SymmetricDim()
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		corr.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			vi, vj := cov.At(i, i), cov.At(j, j)
			if vi <= 0 || vj <= 0 {
				continue
			}
			corr.SetSym(i, j, formulas.Clamp(cov.At(i, j)/math.Sqrt(vi*vj), -1, 1))
		}
	}
	return corr
}

// LiquidityScore is the weight-averaged liquidity tag. Every weighted instrument
// needs a tag; nothing is substituted for a missing one.
func LiquidityScore(weights map[string]float64, tags map[string]float64) (*float64, error) {
	ids := sortedKeys(weights)

	values := make([]float64, 0, len(ids))
	ws := make([]float64, 0, len(ids))
	for _, id := range ids {
		tag, ok := tags[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingLiquidityTag, id)
		}
		values = append(values, tag)
		ws = append(ws, weights[id])
	}
	return formulas.WeightedAverage(values, ws), nil
}

// OverallRiskScore combines concentration and liquidity into a 0..10 score:
// clamp(HHI×10 + (10 − liquidity)×0.5, 0, 10). Nil without a liquidity score.
func OverallRiskScore(hhi float64, liquidity *float64) *float64 {
	if liquidity == nil {
		return nil
	}
	score := formulas.Clamp(hhi*10+(10-*liquidity)*0.5, 0, 10)
	return &score
}

// weightVector orders weights like ids and checks that they cover exactly the
// series and sum to 1 within WeightTolerance.
func weightVector(ids []string, weights map[string]float64) (*mat.VecDense, error) {
	if len(weights) != len(ids) {
		return nil, fmt.Errorf("%w: %d weights for %d series", domain.ErrInvalidWeights, len(weights), len(ids))
	}

	data := make([]float64, len(ids))
	var sum float64
	for i, id := range ids {
		w, ok := weights[id]
		if !ok {
			return nil, fmt.Errorf("%w: no weight for %s", domain.ErrInvalidWeights, id)
		}
		data[i] = w
		sum += w
	}
	if math.Abs(sum-1) > WeightTolerance {
		return nil, fmt.Errorf("%w: weights sum to %v", domain.ErrInvalidWeights, sum)
	}
	return mat.NewVecDense(len(data), data), nil
}

// observations builds a T×N matrix of the periods where no series is skipped.
// The matrix is nil when no period is complete.
func observations(series []domain.ReturnSeries) (*mat.Dense, int) {
	n := len(series)
	var data []float64
	rows := 0
	for t := range series[0].Points {
		complete := true
		for _, s := range series {
			if s.Points[t].Skipped {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for _, s := range series {
			data = append(data, s.Points[t].Return)
		}
		rows++
	}
	if rows == 0 {
		return nil, 0
	}
	return mat.NewDense(rows, n, data), rows
}

func toRows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func highCorrelations(ids []string, corr *mat.SymDense, threshold float64) []domain.CorrelationPair {
	pairs := make([]domain.CorrelationPair, 0)
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if c := corr.At(i, j); math.Abs(c) >= threshold {
				pairs = append(pairs, domain.CorrelationPair{Left: ids[i], Right: ids[j], Correlation: c})
			}
		}
	}
	return pairs
}
