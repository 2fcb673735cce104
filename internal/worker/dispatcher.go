package worker

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type DispatcherConfig struct {
	MinWorkers  int
	MaxWorkers  int
	QueueSize   int
	IdleTimeout time.Duration
}

type clientQueue struct {
	jobs     []Job
	enqueued bool
}

// Dispatcher runs tasks on a bounded worker pool, rotating fairly between clients.
type Dispatcher struct {
	pool     *jobChannelPool
	JobQueue chan Job // intake for outer jobs

	mu        sync.Mutex
	queues    map[string]*clientQueue // pending jobs per client
	ready     *list.List              // round-robin order of client IDs
	positions map[string]*list.Element

	closeMu  sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
	quit     chan struct{}
	stopped  chan struct{}
	done     chan struct{}
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.MinWorkers < 0 {
		cfg.MinWorkers = 0
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	d := &Dispatcher{
		pool:      newJobChannelPool(cfg.MinWorkers, cfg.MaxWorkers, cfg.IdleTimeout),
		JobQueue:  make(chan Job, cfg.QueueSize),
		queues:    make(map[string]*clientQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	// warm up workers
	for i := 0; i < cfg.MinWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Do submits task for clientID and waits for it to finish.
// A full intake queue fails fast with ErrDispatcherBusy.
func (d *Dispatcher) Do(ctx context.Context, clientID string, task Task) error {
	result := make(chan error, 1)
	job := Job{
		Type:     Run,
		ClientID: clientID,
		ctx:      ctx,
		task:     task,
		finish: func(err error) {
			result <- err
			d.inflight.Done()
		},
	}

	d.closeMu.RLock()
	if d.closed {
		d.closeMu.RUnlock()
		return ErrDispatcherClosed
	}
	d.inflight.Add(1)
	select {
	case d.JobQueue <- job:
	default:
		d.inflight.Done()
		d.closeMu.RUnlock()
		return ErrDispatcherBusy
	}
	d.closeMu.RUnlock()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake, fails queued jobs and waits for running ones.
func (d *Dispatcher) Close() {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.closeMu.Unlock()

	d.pool.close()
	close(d.quit)
	<-d.stopped
	d.failPending()
	d.inflight.Wait()
	close(d.done)
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	for {
		// dispatch one job of the client at the front of the round-robin list
		if !d.dispatchOne() {
			select {
			case job := <-d.JobQueue:
				d.enqueueJob(job)
			case <-d.quit:
				return
			}
			continue
		}
		select {
		case job := <-d.JobQueue:
			d.enqueueJob(job)
		case <-d.quit:
			return
		default:
		}
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.ClientID]
	if q == nil {
		q = &clientQueue{}
		d.queues[job.ClientID] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued {
		return
	}
	q.enqueued = true
	d.positions[job.ClientID] = d.ready.PushBack(job.ClientID)
}

// dispatchOne hands the next job of the front client to a worker.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil {
		d.mu.Unlock()
		return false
	}
	clientID := elem.Value.(string)
	q := d.queues[clientID]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	if len(q.jobs) == 0 {
		q.enqueued = false
		d.ready.Remove(elem)
		delete(d.positions, clientID)
		delete(d.queues, clientID)
	} else {
		d.ready.MoveToBack(elem)
	}
	d.mu.Unlock()

	workerChan, workerID := d.pool.acquire()
	if workerChan == nil {
		job.finish(ErrDispatcherClosed)
		return true
	}
	debugLog("assign job", "client", clientID, "worker", workerID)
	workerChan <- job
	return true
}

func (d *Dispatcher) failPending() {
	d.mu.Lock()
	for clientID, q := range d.queues {
		for _, job := range q.jobs {
			job.finish(ErrDispatcherClosed)
		}
		delete(d.queues, clientID)
	}
	d.ready.Init()
	d.positions = make(map[string]*list.Element)
	d.mu.Unlock()

	for {
		select {
		case job := <-d.JobQueue:
			job.finish(ErrDispatcherClosed)
		default:
			return
		}
	}
}
