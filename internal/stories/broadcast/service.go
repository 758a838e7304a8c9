package broadcast

import (
	"context"
	"errors"
)

var ErrAlreadyRunning = errors.New("broadcast already running")

// Launch запускает рассылку в фоне. Одновременно идёт только одна рассылка.
// done вызывается с итоговым отчётом.
func (e *Engine) Launch(ctx context.Context, audience Audience, msg Message, progress ProgressFunc, done func(context.Context, Report)) (int, error) {
	if !e.running.CompareAndSwap(false, true) {
		return 0, ErrAlreadyRunning
	}

	recipients, err := e.Recipients(ctx, audience)
	if err != nil {
		e.running.Store(false)
		return 0, err
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer e.running.Store(false)
		report := e.Run(ctx, recipients, msg, progress)
		if done != nil {
			done(ctx, report)
		}
	}()
	return len(recipients), nil
}

func (e *Engine) Running() bool {
	return e.running.Load()
}
