package renderer

import (
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/df07/go-ward-shading/pkg/core"
	"github.com/df07/go-ward-shading/pkg/material"
)

// ShadeTask is a batch of hits on one material
type ShadeTask struct {
	TaskID   int // For deterministic ordering
	Material material.Material
	Hits     []material.Hit
	Seed     int64 // sampler seed, so results do not depend on which worker runs the task
}

// ShadeResult contains the result from shading a task
type ShadeResult struct {
	TaskID  int
	Results []material.Result // one per hit, in task order
	Stats   ShadingStats
	Error   error // first shading error in the task, if any
}

// WorkerPool manages parallel shading
type WorkerPool struct {
	taskQueue   chan ShadeTask
	resultQueue chan ShadeResult
	workers     []*Worker
	numWorkers  int
	wg          sync.WaitGroup
}

// Worker handles individual shading tasks
type Worker struct {
	ID          int
	shade       material.ShadeFunc
	sampler     *core.RandomSampler
	taskQueue   chan ShadeTask
	resultQueue chan ShadeResult
}

// NewWorkerPool creates a worker pool with the specified number of workers.
// queueSize bounds the number of tasks and results buffered at once.
func NewWorkerPool(shader *material.Shader, numWorkers, queueSize int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = numWorkers
	}

	wp := &WorkerPool{
		taskQueue:   make(chan ShadeTask, queueSize),
		resultQueue: make(chan ShadeResult, queueSize),
		numWorkers:  numWorkers,
	}

	table := material.DispatchTable{}
	shader.Register(table)

	for i := 0; i < numWorkers; i++ {
		worker := &Worker{
			ID:          i,
			shade:       dispatch(table),
			sampler:     core.NewRandomSampler(rand.New(rand.NewSource(int64(i)))),
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		}
		wp.workers = append(wp.workers, worker)
	}

	return wp
}

// dispatch routes each material to its registered shading function
func dispatch(table material.DispatchTable) material.ShadeFunc {
	return func(m material.Material, hit *material.Hit, sampler core.Sampler) (material.Result, error) {
		if m == nil {
			return material.Result{}, fmt.Errorf("%w: nil material", material.ErrBadArgument)
		}
		fn, ok := table[m.Kind()]
		if !ok {
			return material.Result{}, fmt.Errorf("%w: no shader for %s", material.ErrBadArgument, m.Kind())
		}
		return fn(m, hit, sampler)
	}
}

// Start begins all workers
func (wp *WorkerPool) Start() {
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(&wp.wg)
	}
}

// Stop gracefully shuts down all workers
func (wp *WorkerPool) Stop() {
	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
	close(wp.resultQueue)
}

// SubmitTask submits a shading task to the worker pool
func (wp *WorkerPool) SubmitTask(task ShadeTask) {
	wp.taskQueue <- task
}

// GetResult retrieves a completed result
func (wp *WorkerPool) GetResult() (ShadeResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// run is the main worker loop
func (w *Worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		w.resultQueue <- w.shadeTask(task)
	}
}

func (w *Worker) shadeTask(task ShadeTask) ShadeResult {
	w.sampler.Reseed(task.Seed)

	result := ShadeResult{
		TaskID:  task.TaskID,
		Results: make([]material.Result, len(task.Hits)),
		Stats:   ShadingStats{Tasks: 1},
	}
	for i := range task.Hits {
		res, err := w.shade(task.Material, &task.Hits[i], w.sampler)
		result.Stats.Hits++
		if err != nil {
			result.Stats.Errors++
			if result.Error == nil {
				result.Error = err
			}
			continue
		}
		result.Results[i] = res
		result.Stats.Specular = result.Stats.Specular.Add(res.Specular)
	}
	return result
}

// ShadeAll runs tasks on a fresh pool and returns the results ordered by
// task id
func ShadeAll(shader *material.Shader, tasks []ShadeTask, numWorkers int) ([]ShadeResult, ShadingStats) {
	pool := NewWorkerPool(shader, numWorkers, len(tasks))
	pool.Start()

	for _, task := range tasks {
		pool.SubmitTask(task)
	}

	results := make([]ShadeResult, 0, len(tasks))
	var stats ShadingStats
	for range tasks {
		result, ok := pool.GetResult()
		if !ok {
			break
		}
		stats = stats.Add(result.Stats)
		results = append(results, result)
	}
	pool.Stop()

	sort.Slice(results, func(i, j int) bool { return results[i].TaskID < results[j].TaskID })
	return results, stats
}
