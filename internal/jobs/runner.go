package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Job func(ctx context.Context) error

// Runner крутит фоновые задачи до отмены контекста. Первый прогон — сразу
// при старте: поиск слотов не должен ждать целый интервал после рестарта.
type Runner struct {
	ctx context.Context
	log *zap.SugaredLogger
}

func New(ctx context.Context, log *zap.SugaredLogger) *Runner {
	return &Runner{ctx: ctx, log: log}
}

func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		r.runOnce(name, fn)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.runOnce(name, fn)
			}
		}
	}()
}

func (r *Runner) runOnce(name string, fn Job) {
	start := time.Now()
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return fn(r.ctx)
	}()
	if err != nil {
		jobErrors.WithLabelValues(name).Inc()
		r.log.Errorw("фоновая задача завершилась с ошибкой", "job", name, "err", err)
	}
	jobRuns.WithLabelValues(name).Inc()
	jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
