package service

import (
	"context"
	"sync"
	"time"

	"medterms/internal/quiz"

	"go.uber.org/zap"
)

const recordTimeout = 10 * time.Second

// FailureListener is notified when an answer could not be persisted
type FailureListener func(ev quiz.AnswerEvent, err error)

// AnswerRecorder persists quiz answers off the interaction path
type AnswerRecorder struct {
	progress *ProgressService
	logger   *zap.Logger

	wg        sync.WaitGroup
	mu        sync.RWMutex
	listeners []FailureListener
}

// NewAnswerRecorder creates a new answer recorder
func NewAnswerRecorder(progress *ProgressService, logger *zap.Logger) *AnswerRecorder {
	return &AnswerRecorder{
		progress: progress,
		logger:   logger,
	}
}

// OnFailure registers a listener for failed writes
func (r *AnswerRecorder) OnFailure(fn FailureListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Dispatch records the answer in the background. It matches quiz.Dispatcher.
func (r *AnswerRecorder) Dispatch(ev quiz.AnswerEvent) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		err := r.progress.ForUser(ev.UserID).RecordAnswer(ctx, ev.TermID, ev.Correct)
		if err == nil {
			return
		}

		r.mu.RLock()
		listeners := append([]FailureListener(nil), r.listeners...)
		r.mu.RUnlock()

		for _, fn := range listeners {
			fn(ev, err)
		}
	}()
}

// Wait blocks until every dispatched write has finished
func (r *AnswerRecorder) Wait() {
	r.wg.Wait()
}
