package middleware

import (
	"context"
	"log"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/models"
	"github.com/crafted-exteriors/crm-api/internal/repository"
	"github.com/gin-gonic/gin"
)

// RequestLogWorker batches request logs through a buffered channel so the
// response path never waits on the database.
type RequestLogWorker struct {
	repo *repository.RequestLogRepository
	ch   chan models.RequestLog
	done chan struct{}
}

func NewRequestLogWorker(repo *repository.RequestLogRepository, bufferSize int) *RequestLogWorker {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	w := &RequestLogWorker{
		repo: repo,
		ch:   make(chan models.RequestLog, bufferSize),
		done: make(chan struct{}),
	}

	go w.run()
	return w
}

func (w *RequestLogWorker) run() {
	batch := make([]models.RequestLog, 0, 100)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := w.repo.CreateBatch(ctx, batch); err != nil {
			log.Printf("requestlog: failed to insert batch of %d: %v", len(batch), err)
		}
		cancel()
		batch = make([]models.RequestLog, 0, 100)
	}

	for {
		select {
		case entry := <-w.ch:
			batch = append(batch, entry)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.done:
			flush()
			return
		}
	}
}

// Stop flushes pending entries and ends the worker.
func (w *RequestLogWorker) Stop() {
	close(w.done)
}

// Middleware records every request's outcome for the admin traffic dashboard.
func (w *RequestLogWorker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := models.RequestLog{
			Timestamp:      start,
			Method:         c.Request.Method,
			Path:           c.Request.URL.Path,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(time.Since(start).Milliseconds()),
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
		}

		select {
		case w.ch <- entry:
		default:
			// Channel full; drop rather than block the response.
		}
	}
}
