package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/notify"
)

const sendTimeout = 5 * time.Second

// Pool delivers notifications in the background. TaskCreated never blocks
// the caller: when the queue is full the notification is dropped and logged.
type Pool struct {
	sink      notify.Sink
	logger    *zap.Logger
	recipient string
	count     int
	queue     chan notify.Notification
	wg        sync.WaitGroup
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewPool(sink notify.Sink, logger *zap.Logger, count, queueSize int, recipient string) *Pool {
	if count <= 0 {
		count = 1
	}
	return &Pool{
		sink:      sink,
		logger:    logger.Named("worker"),
		recipient: recipient,
		count:     count,
		queue:     make(chan notify.Notification, queueSize),
		stop:      make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("workers", p.count))

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop delivers whatever is still queued and waits for the workers.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool...")
		close(p.stop)
		p.wg.Wait()
		p.logger.Info("Worker pool stopped")
	})
}

func (p *Pool) TaskCreated(_ context.Context, t model.Task) {
	n := notify.TaskCreated(t, p.recipient)

	select {
	case <-p.stop:
		p.logger.Warn("notification dropped, pool stopped", zap.String("task_id", t.ID))
		return
	default:
	}

	select {
	case p.queue <- n:
	default:
		p.logger.Warn("notification dropped, queue full", zap.String("task_id", t.ID))
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			p.drain(id)
			return
		case <-ctx.Done():
			return
		case n := <-p.queue:
			p.deliver(id, n)
		}
	}
}

func (p *Pool) drain(id int) {
	for {
		select {
		case n := <-p.queue:
			p.deliver(id, n)
		default:
			return
		}
	}
}

func (p *Pool) deliver(workerID int, n notify.Notification) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("notification sink panicked",
				zap.Int("worker", workerID),
				zap.String("task_id", n.TaskID),
				zap.Any("panic", rec),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := p.sink.Send(ctx, n); err != nil {
		p.logger.Error("Failed to send notification",
			zap.Int("worker", workerID),
			zap.String("task_id", n.TaskID),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("notification delivered", zap.Int("worker", workerID), zap.String("task_id", n.TaskID))
}
