package world

import (
	"runtime"
	"sync"

	"github.com/mlange-42/ark/ecs"

	"github.com/vbe-lab/vbe3d/components"
	"github.com/vbe-lab/vbe3d/neural"
	"github.com/vbe-lab/vbe3d/systems"
)

// parallelThreshold is the minimum robot count to use parallel decision
// making. Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// robotSnapshot captures the read-only state one robot's perceive/decide
// needs. Snapshots freeze the pre-action world so workers never race
// against each other.
type robotSnapshot struct {
	Entity    ecs.Entity
	ID        uint32
	Pos       components.Position
	Energy    components.Energy
	ConnCount int
	State     components.RobotState
	Brain     neural.Brain
}

// intent is one robot's decided action, applied after the parallel phase.
type intent struct {
	Action int
	Err    error
}

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	Hits      []systems.Entry
	Resources []systems.Candidate
	Robots    []systems.Candidate
	Obs       [systems.ObsLen]float32
}

// workChunk is a snapshot index range for one worker.
type workChunk struct {
	start, end int
}

// parallelState holds the persistent worker pool for the decide phase.
type parallelState struct {
	snapshots  []robotSnapshot
	intents    []intent
	scratches  []workerScratch
	numWorkers int

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	world    *World
}

func newParallelState() *parallelState {
	numWorkers := runtime.GOMAXPROCS(0)
	scratches := make([]workerScratch, numWorkers)
	for i := range scratches {
		scratches[i].Hits = make([]systems.Entry, 0, 64)
		scratches[i].Resources = make([]systems.Candidate, 0, 32)
		scratches[i].Robots = make([]systems.Candidate, 0, 32)
	}
	return &parallelState{
		numWorkers: numWorkers,
		scratches:  scratches,
		snapshots:  make([]robotSnapshot, 0, 256),
		intents:    make([]intent, 0, 256),
	}
}

func (p *parallelState) startWorkers(w *World) {
	if p.running {
		return
	}
	p.world = w
	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *parallelState) stopWorkers() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *parallelState) worker(workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.world.decideChunk(chunk.start, chunk.end, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// decide runs perceive and decide for every live robot. Snapshots are
// built single-threaded in ascending id order, chunks fan out to workers
// when the population is large enough, and the function returns only when
// every intent is filled in: the caller applies them serially afterwards.
func (w *World) decide() {
	p := w.parallel

	// Phase A: snapshots, single-threaded, id order.
	p.snapshots = p.snapshots[:0]
	for _, id := range sortedIDs(w.robots) {
		e := w.robots[id]
		brain, ok := w.brains[id]
		if !ok {
			continue
		}
		p.snapshots = append(p.snapshots, robotSnapshot{
			Entity:    e,
			ID:        id,
			Pos:       *w.posMap.Get(e),
			Energy:    *w.energyMap.Get(e),
			ConnCount: w.connMap.Get(e).Count(),
			State:     w.robotMap.Get(e).State,
			Brain:     brain,
		})
	}

	n := len(p.snapshots)
	if n == 0 {
		return
	}
	if cap(p.intents) < n {
		p.intents = make([]intent, n)
	}
	p.intents = p.intents[:n]

	// Phase B: compute.
	if n < parallelThreshold {
		w.decideChunk(0, n, &p.scratches[0])
		return
	}

	if !p.running {
		p.startWorkers(w)
	}
	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for i := 0; i < p.numWorkers; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// decideChunk perceives and decides for a range of snapshots. It touches
// only the frozen grid and the frozen snapshots, never live components.
func (w *World) decideChunk(i0, i1 int, scratch *workerScratch) {
	radius := float32(w.cfg.Perception.Radius)
	radiusSq := radius * radius

	for i := i0; i < i1; i++ {
		snap := &w.parallel.snapshots[i]
		out := &w.parallel.intents[i]

		scratch.Hits = w.grid.QueryInto(scratch.Hits[:0], snap.Pos, radius)
		scratch.Resources = scratch.Resources[:0]
		scratch.Robots = scratch.Robots[:0]

		// Classify hits and filter the cube superset down to the sphere.
		for _, hit := range scratch.Hits {
			if hit.ID == snap.ID {
				continue
			}
			if snap.Pos.DistSq(hit.Pos) > radiusSq {
				continue
			}
			cand := systems.Candidate{ID: hit.ID, Pos: hit.Pos}
			if hit.Robot {
				scratch.Robots = append(scratch.Robots, cand)
			} else {
				scratch.Resources = append(scratch.Resources, cand)
			}
		}

		nearRes, hasRes := systems.Nearest(snap.Pos, scratch.Resources)
		nearBot, hasBot := systems.Nearest(snap.Pos, scratch.Robots)

		obs := systems.BuildObservation(
			scratch.Obs[:],
			snap.Pos,
			nearRes, hasRes,
			nearBot, hasBot,
			snap.Energy,
			snap.ConnCount,
			snap.State,
		)

		out.Action, out.Err = snap.Brain.DecideAction(obs)
	}
}
