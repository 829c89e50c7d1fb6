package worker

import "context"

type StartOptions[J any] struct {
	Ctx  context.Context
	Sem  chan struct{}
	Jobs <-chan J
	// Handle processes one job. A panic inside Handle is recovered and
	// reported via OnPanic so one bad job cannot take the worker down.
	Handle  func(context.Context, J)
	OnPanic func(J, any)
}

func Start[J any](opts StartOptions[J]) {
	go func() {
		for {
			select {
			case <-opts.Ctx.Done():
				return
			case job, ok := <-opts.Jobs:
				if !ok {
					return
				}
				select {
				case opts.Sem <- struct{}{}:
				case <-opts.Ctx.Done():
					return
				}
				func() {
					defer func() { <-opts.Sem }()
					defer func() {
						if r := recover(); r != nil && opts.OnPanic != nil {
							opts.OnPanic(job, r)
						}
					}()
					opts.Handle(opts.Ctx, job)
				}()
			}
		}
	}()
}

// TryEnqueue hands the job over without ever blocking; a full buffer drops
// the job. Event dispatch loops must not stall on one slow channel.
func TryEnqueue[J any](workersCtx context.Context, jobs chan<- J, job J) bool {
	select {
	case <-workersCtx.Done():
		return false
	default:
	}
	select {
	case jobs <- job:
		return true
	default:
		return false
	}
}
