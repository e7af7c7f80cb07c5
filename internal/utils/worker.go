package utils

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool fans tasks out to a fixed set of goroutines tied to a tomb.
type WorkerPool struct {
	n     int      // number of workers
	tasks chan any // pending task queue
}

func NewWorkerPool(size uint) WorkerPool {
	return WorkerPool{
		n:     int(size),
		tasks: make(chan any, taskChanSize),
	}
}

// Setup spawns the workers under the given tomb. A worker returning an
// error kills the tomb, taking the rest of the pool down with it.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	for i := 0; i < pool.n; i++ {
		id := i
		t.Go(func() error {
			return pool.worker(t, id, work)
		})
	}
}

// AddTask queues a task for the next free worker.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Workers wait on tasks in the task queue and action them.
func (pool *WorkerPool) worker(t *tomb.Tomb, id int, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-pool.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Int("id", id).Msg("worker exiting")
				return err
			}
		}
	}
}
