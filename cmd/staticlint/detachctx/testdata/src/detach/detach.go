package detach

import (
	"context"
	"time"
)

func publish(ctx context.Context) error { return ctx.Err() }

func captured(ctx context.Context) {
	go func() {
		_ = publish(ctx) // want "горутина захватывает контекст ctx"
		_ = ctx.Err()
	}()
}

func capturedDerived(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, time.Second)
	go func() {
		defer cancel()
		<-ctx.Done() // want "горутина захватывает контекст ctx"
	}()
}

func detached(parent context.Context) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), time.Second)
	go func(ctx context.Context) {
		defer cancel()
		_ = publish(ctx)
	}(taskCtx)
}

func local() {
	go func() {
		ctx := context.Background()
		_ = publish(ctx)
	}()
}

func namedFunc(ctx context.Context) {
	go publishAsync(ctx)
}

func publishAsync(ctx context.Context) { _ = publish(ctx) }
