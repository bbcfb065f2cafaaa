package service

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelops/sigmagate/internal/domain/gate"
	"github.com/kestrelops/sigmagate/internal/port/decisionlog"
	"github.com/kestrelops/sigmagate/internal/resilience"
)

// maxConcurrentProbes bounds how many probe gates a sweep runs at once.
const maxConcurrentProbes = 8

// SweepCase is one fixed evaluation scenario for a threshold sweep.
type SweepCase struct {
	Name          string
	TaskCard      gate.TaskCard
	Candidate     gate.Candidate
	Validators    []gate.Validator
	Overrides     gate.Overrides
	MissingFields []gate.MissingField
}

// SweepPoint aggregates outcomes for one threshold across all cases.
type SweepPoint struct {
	Threshold   float64 `json:"threshold"`
	Apply       int     `json:"apply"`
	Ask         int     `json:"ask"`
	Refuse      int     `json:"refuse"`
	MeanSigma   float64 `json:"mean_sigma"`
	RefusalRate float64 `json:"refusal_rate"`
}

// Sweep evaluates every case at every threshold, one goroutine per
// threshold, and returns the points sorted by threshold ascending.
// Sweep gates are built fresh per threshold with a discard sink, so a
// sweep never pollutes the service's decision log or undo state.
func (s *GateService) Sweep(ctx context.Context, thresholds []float64, cases []SweepCase) ([]SweepPoint, error) {
	if len(thresholds) == 0 || len(cases) == 0 {
		return nil, fmt.Errorf("sweep needs at least one threshold and one case")
	}

	points := make([]SweepPoint, len(thresholds))
	g, ctx := errgroup.WithContext(ctx)
	pool := resilience.NewPool(maxConcurrentProbes)

	for i, tau := range thresholds {
		if tau < 0 || tau > 1 {
			return nil, fmt.Errorf("threshold %v out of [0,1]", tau)
		}
		g.Go(func() error {
			return pool.Run(ctx, func() error {
				return s.sweepOne(ctx, tau, cases, &points[i])
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("threshold sweep: %w", err)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Threshold < points[j].Threshold })
	return points, nil
}

// sweepOne evaluates every case against a probe gate at one threshold.
func (s *GateService) sweepOne(ctx context.Context, tau float64, cases []SweepCase, out *SweepPoint) error {
	opts := s.opts
	opts.Threshold = tau
	probe := NewGateService(opts, decisionlog.Nop{}, nil, nil)

	point := SweepPoint{Threshold: tau}
	var sigmaSum float64
	for _, c := range cases {
		res, _ := probe.Evaluate(ctx, EvalRequest{
			TaskCard:      c.TaskCard,
			Candidate:     c.Candidate,
			Validators:    c.Validators,
			Overrides:     c.Overrides,
			MissingFields: c.MissingFields,
		})
		sigmaSum += res.Record.Sigma
		switch res.Outcome.Decision {
		case gate.DecisionApply:
			point.Apply++
		case gate.DecisionAsk:
			point.Ask++
		case gate.DecisionRefuse:
			point.Refuse++
		}
	}
	point.MeanSigma = sigmaSum / float64(len(cases))
	point.RefusalRate = float64(point.Refuse) / float64(len(cases))
	*out = point
	return ctx.Err()
}
