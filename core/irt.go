package core

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itemwatch/itemwatch/internal/contract"
	"github.com/itemwatch/itemwatch/schema"
)

// Observation pairs a session's latent trait proxy with the scored response
// to one item.
type Observation struct {
	Theta float64
	Y     float64 // 1 if correct, 0 otherwise
}

// fitResult carries one item's converged parameters out of the worker pool.
type fitResult struct {
	itemID string
	a      float64
	b      float64
	n      int
}

// ExecuteIrt runs the 2PL estimation task: it scores sessions over the
// window, fits discrimination and difficulty per item with enough responses,
// and appends one parameter row per fitted item.
func ExecuteIrt(ctx context.Context, cfg *contract.Config, store contract.Store) (*schema.TaskSummary, error) {
	responses, err := store.ListResponses(ctx, cfg.TenantID, cfg.Since)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}

	run := newAnalysisRun(cfg, schema.IrtRun, map[string]any{
		"windowDays":   cfg.WindowDays,
		"model":        string(schema.TwoPL),
		"minResponses": cfg.Irt.MinResponses,
		"maxIters":     cfg.Irt.MaxIters,
		"learningRate": cfg.Irt.LearningRate,
		"l2":           cfg.Irt.L2,
		"tolerance":    cfg.Irt.Tolerance,
	}, FingerprintWindow(len(responses), cfg.Since))
	if err := store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating analysis run: %w", err)
	}

	thetas := ThetaMap(responses)

	// Items below the response floor are skipped entirely, not fit with
	// wide error bars. Sparse fits drift too much to compare across runs.
	obsByItem := make(map[string][]Observation)
	for itemID, rows := range groupByItem(responses) {
		if len(rows) < cfg.Irt.MinResponses {
			continue
		}
		obs := make([]Observation, 0, len(rows))
		for _, r := range rows {
			y := 0.0
			if r.Correct() {
				y = 1.0
			}
			obs = append(obs, Observation{Theta: thetas[r.SessionID], Y: y})
		}
		obsByItem[itemID] = obs
	}

	fitted := fitItems(obsByItem, cfg.Workers, cfg.Irt)

	for _, itemID := range sortedKeys(fitted) {
		r := fitted[itemID]
		param := &schema.IrtParam{
			ItemID:           itemID,
			AnalysisRunID:    run.ID,
			Model:            schema.TwoPL,
			AParam:           r.a,
			BParam:           r.b,
			CParam:           schema.TwoPLCParam,
			DParam:           schema.TwoPLDParam,
			EstimationMethod: schema.GradientMethod,
			N:                r.n,
			CreatedAt:        time.Now().UTC(),
		}
		if err := store.InsertIrtParam(ctx, cfg.TenantID, param); err != nil {
			return nil, fmt.Errorf("inserting irt params for item %s: %w", itemID, err)
		}
	}

	return &schema.TaskSummary{AnalysisRunID: run.ID, ItemCount: len(fitted)}, nil
}

// fitItems estimates every item group on a bounded worker pool. Each item is
// independent, so the pool only shares the read-only observation map.
func fitItems(obsByItem map[string][]Observation, workers int, opts contract.IrtConfig) map[string]fitResult {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string, len(obsByItem))
	results := make(chan fitResult, len(obsByItem))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for itemID := range jobs {
				obs := obsByItem[itemID]
				a, b := Estimate2PL(obs, opts)
				results <- fitResult{itemID: itemID, a: a, b: b, n: len(obs)}
			}
		}()
	}

	for _, itemID := range sortedKeys(obsByItem) {
		jobs <- itemID
	}
	close(jobs)
	wg.Wait()
	close(results)

	fitted := make(map[string]fitResult, len(obsByItem))
	for r := range results {
		fitted[r.itemID] = r
	}
	return fitted
}

// Estimate2PL fits a two-parameter logistic model to one item's observations
// by full-batch gradient ascent on the Bernoulli log-likelihood, with L2
// shrinkage pulling a toward 0 and b toward 0.
//
// The fit is deterministic for a given observation order: fixed start point
// (a=1, b=0), fixed iteration schedule, no randomness. Parameters are
// clamped into their configured bounds after every step. A non-finite
// parameter resets the item to the start point and stops the fit.
func Estimate2PL(data []Observation, opts contract.IrtConfig) (float64, float64) {
	a, b := 1.0, 0.0

	n := float64(len(data))
	if n == 0 {
		n = 1
	}

	for iter := 0; iter < opts.MaxIters; iter++ {
		var gradA, gradB float64
		for _, obs := range data {
			p := Sigmoid(a * (obs.Theta - b))
			gradA += (obs.Y - p) * (obs.Theta - b)
			gradB += (obs.Y - p) * (-a)
		}
		gradA -= opts.L2 * a
		gradB -= opts.L2 * b

		stepA := opts.LearningRate * gradA / n
		stepB := opts.LearningRate * gradB / n
		a += stepA
		b += stepB

		if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
			a, b = 1.0, 0.0
			break
		}

		a = math.Min(math.Max(a, opts.MinA), opts.MaxA)
		b = math.Min(math.Max(b, opts.MinB), opts.MaxB)

		if math.Abs(stepA)+math.Abs(stepB) < opts.Tolerance {
			break
		}
	}
	return a, b
}
