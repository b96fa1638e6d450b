// Package workerpool is a tomb.v2-supervised fixed-size worker pool:
// each worker pulls a task off a shared channel and runs it, exiting
// cleanly when the tomb starts dying.
package workerpool

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunction is the task handler every worker runs. Any error it
// returns is returned from the worker's tomb goroutine, which kills
// the tomb and so every goroutine it supervises.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool is a channel-backed pool of n concurrent workers.
type WorkerPool struct {
	n     int
	tasks chan any
}

// New builds a WorkerPool with the given worker count.
func New(size int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, taskChanSize),
		n:     size,
	}
}

// AddTask enqueues a task for the next free worker.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup blocks, maintaining a full complement of n workers running
// work against t until t starts dying.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	log.Info().Int("workers", pool.n).Msg("workerpool: starting")
	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < pool.n {
				t.Go(func() error {
					err := pool.worker(t, work)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (pool *WorkerPool) worker(t *tomb.Tomb, work WorkerFunction) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-pool.tasks:
		if err := work(t, task); err != nil {
			log.Error().Err(err).Msg("workerpool: worker exiting on error")
			return err
		}
	}
	return nil
}
