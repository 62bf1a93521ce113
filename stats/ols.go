package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxCondition bounds the condition number of the design matrix accepted by
// olsRegression, estimated from the triangular factor R.
const maxCondition = 1e12

// olsFit holds an ordinary least squares fit.
type olsFit struct {
	Coeffs    []float64
	StdErrors []float64
	SSR       float64
	NObs      int
	NParams   int
}

// TValue returns the t-statistic of coefficient i.
func (f *olsFit) TValue(i int) float64 {
	return f.Coeffs[i] / f.StdErrors[i]
}

// LogLik returns the Gaussian log-likelihood of the fit.
func (f *olsFit) LogLik() float64 {
	n := float64(f.NObs)
	return -n / 2 * (math.Log(2*math.Pi) + math.Log(f.SSR/n) + 1)
}

// IC returns the information criteria of the fit.
func (f *olsFit) IC() *InformationCriteria {
	return CalculateIC(f.LogLik(), f.NObs, f.NParams)
}

// olsRegression performs ordinary least squares regression of y on the
// columns of x via a QR factorisation of x. Standard errors come from R⁻¹,
// since (X'X)⁻¹ = R⁻¹R⁻ᵀ.
func olsRegression(x *mat.Dense, y []float64) (*olsFit, error) {
	n, k := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("stats: design has %d rows for %d observations", n, len(y))
	}
	if n <= k {
		return nil, fmt.Errorf("%w: %d observations for %d regressors", ErrInsufficientData, n, k)
	}

	var qr mat.QR
	qr.Factorize(x)
	if cond := qr.Cond(); cond > maxCondition || math.IsNaN(cond) || math.IsInf(cond, 0) {
		return nil, fmt.Errorf("%w: design matrix condition number %.3g", ErrNumericalInstability, cond)
	}

	yVec := mat.NewVecDense(n, y)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, yVec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNumericalInstability, err)
	}

	var rFull mat.Dense
	qr.RTo(&rFull)
	r := mat.NewTriDense(k, mat.Upper, nil)
	r.Copy(rFull.Slice(0, k, 0, k))
	var rInv mat.TriDense
	if err := rInv.InverseTri(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNumericalInstability, err)
	}

	var fitted, resid mat.VecDense
	fitted.MulVec(x, beta.ColView(0))
	resid.SubVec(yVec, &fitted)
	ssr := mat.Dot(&resid, &resid)

	s2 := ssr / float64(n-k)
	if s2 <= 0 || math.IsNaN(s2) || math.IsInf(s2, 0) {
		return nil, fmt.Errorf("%w: residual variance is %g", ErrNumericalInstability, s2)
	}

	fit := &olsFit{
		Coeffs:    make([]float64, k),
		StdErrors: make([]float64, k),
		SSR:       ssr,
		NObs:      n,
		NParams:   k,
	}
	for i := 0; i < k; i++ {
		fit.Coeffs[i] = beta.At(i, 0)
		// diag((X'X)⁻¹)_i is the squared norm of row i of R⁻¹.
		row := 0.0
		for j := i; j < k; j++ {
			v := rInv.At(i, j)
			row += v * v
		}
		fit.StdErrors[i] = math.Sqrt(s2 * row)
	}

	return fit, nil
}

// InformationCriteria calculates AIC, AICc, and BIC given model parameters.
type InformationCriteria struct {
	AIC    float64
	AICc   float64
	BIC    float64
	LogLik float64
}

// CalculateIC calculates all information criteria.
// logLik is the log-likelihood, nObs is the number of observations,
// nParams is the number of estimated parameters.
func CalculateIC(logLik float64, nObs int, nParams int) *InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	bic := -2*logLik + k*math.Log(n)

	var aicc float64
	if n-k-1 > 0 {
		aicc = aic + 2*k*(k+1)/(n-k-1)
	} else {
		aicc = math.Inf(1)
	}

	return &InformationCriteria{
		AIC:    aic,
		AICc:   aicc,
		BIC:    bic,
		LogLik: logLik,
	}
}
