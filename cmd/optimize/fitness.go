package main

import (
	"log/slog"
	"math"

	"github.com/vbe-lab/vbe3d/config"
	"github.com/vbe-lab/vbe3d/world"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params   *ParamVector
	maxSteps int64
	seeds    []int64
	baseCfg  *config.Config
	log      *slog.Logger

	lastCollected float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxSteps int64, seeds []int64, baseCfg *config.Config, log *slog.Logger) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:   params,
		maxSteps: maxSteps,
		seeds:    seeds,
		baseCfg:  baseCfg,
		log:      log,
	}
}

// LastCollected returns the mean collections per step from the most
// recent evaluation.
func (fe *FitnessEvaluator) LastCollected() float64 {
	return fe.lastCollected
}

// Evaluate computes fitness for a parameter vector (lower = better):
// the negated mean over seeds of population survival steps, weighted by
// collection activity so thriving populations beat merely-idle ones.
func (fe *FitnessEvaluator) Evaluate(raw []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, raw)

	var fitnessSum, collectedSum float64
	for _, seed := range fe.seeds {
		survival, collected := fe.runOnce(cfg, seed)
		perStep := collected / math.Max(float64(survival), 1)
		fitnessSum += -float64(survival) * (1 + 0.2*perStep)
		collectedSum += perStep
	}

	fe.lastCollected = collectedSum / float64(len(fe.seeds))
	return fitnessSum / float64(len(fe.seeds))
}

// runOnce steps one headless world until extinction or the step cap and
// returns the survival step count and total collections.
func (fe *FitnessEvaluator) runOnce(cfg *config.Config, seed int64) (int64, float64) {
	w, err := world.New(cfg, world.Options{Seed: seed, Logger: fe.log})
	if err != nil {
		fe.log.Error("failed to create world", "error", err)
		return 0, 0
	}
	defer w.Close()
	w.SpawnInitial()

	var survival int64
	for survival = 0; survival < fe.maxSteps; survival++ {
		if w.RobotCount() == 0 {
			break
		}
		w.Step()
	}
	return survival, float64(w.Stats().ResourcesCollected)
}

// copyConfig returns an independent copy of the base config so parallel
// evaluations can never share mutable state.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cp := *fe.baseCfg
	return &cp
}
