package service

import (
	"context"
	"sync"

	"github.com/bnema/transcoder/internal/infrastructure/logger"
)

// TaskRunner executes one task to completion.
type TaskRunner interface {
	Execute(ctx context.Context, task ExecutionTask)
}

// Scheduler runs at most limit tasks at a time and queues the rest in
// submission order.
type Scheduler struct {
	runner TaskRunner
	limit  int

	mu      sync.Mutex
	running int
	queue   []scheduledTask

	wg sync.WaitGroup
}

type scheduledTask struct {
	ctx  context.Context
	task ExecutionTask
}

func NewScheduler(runner TaskRunner, limit int) *Scheduler {
	if limit < 1 {
		limit = 1
	}
	return &Scheduler{
		runner: runner,
		limit:  limit,
	}
}

// Submit starts the task now if a slot is free, otherwise appends it to the
// queue. Tasks outlive the submitting request: ctx cancellation is not
// propagated to them.
func (s *Scheduler) Submit(ctx context.Context, task ExecutionTask) {
	st := scheduledTask{ctx: context.WithoutCancel(ctx), task: task}

	s.wg.Add(1)
	s.mu.Lock()
	if s.running < s.limit {
		s.running++
		running := s.running
		s.mu.Unlock()

		logger.Info.Printf("job %s: starting immediately (running=%d)", task.JobID, running)
		go s.run(st)
		return
	}
	s.queue = append(s.queue, st)
	queued := len(s.queue)
	s.mu.Unlock()

	logger.Info.Printf("job %s: queued (queue=%d)", task.JobID, queued)
}

func (s *Scheduler) run(st scheduledTask) {
	defer s.release(st.task)
	s.runner.Execute(st.ctx, st.task)
}

// release frees the slot held by a finished task and hands it to the head
// of the queue. It runs deferred, so it also covers a panicking task.
func (s *Scheduler) release(task ExecutionTask) {
	if r := recover(); r != nil {
		logger.Error.Printf("job %s: task panicked: %v", task.JobID, r)
	}

	s.mu.Lock()
	s.running--
	var next *scheduledTask
	if len(s.queue) > 0 && s.running < s.limit {
		head := s.queue[0]
		s.queue[0] = scheduledTask{}
		s.queue = s.queue[1:]
		s.running++
		next = &head
	}
	running, queued := s.running, len(s.queue)
	s.mu.Unlock()

	logger.Info.Printf("job %s: task finished (running=%d, queue=%d)", task.JobID, running, queued)
	s.wg.Done()

	if next != nil {
		logger.Info.Printf("job %s: dequeued", next.task.JobID)
		go s.run(*next)
	}
}

// Stats reports the number of running and queued tasks.
func (s *Scheduler) Stats() (running, queued int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, len(s.queue)
}

func (s *Scheduler) Limit() int {
	return s.limit
}

// Wait blocks until every submitted task has completed or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
