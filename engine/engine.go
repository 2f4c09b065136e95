package engine

import (
	"context"
	"sync"

	Logger "github.com/Luismorlan/postsync/utils/log"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Engine owns the lifecycle of every long running module of the service and
// the event bus they communicate through.
type Engine struct {
	// Each Module is run in its own goroutine. A module's lifetime is bound to
	// the Engine's.
	Modules []Module

	// The bus the store publishes change notifications on and the reconciler
	// publishes refresh results on.
	EventBus *gochannel.GoChannel

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewEngine(ms []Module, e *gochannel.GoChannel) *Engine {
	return &Engine{
		Modules:  ms,
		EventBus: e,
	}
}

// Run executes all modules and blocks until every one of them returns, which
// happens once ctx is done or Shutdown is called.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	var wg sync.WaitGroup
	for idx := range e.Modules {
		wg.Add(1)
		go func(module Module) {
			defer wg.Done()
			Logger.Log.Infof("start engine module %s", module.Name())
			RunModuleWithGracefulRestart(ctx, module)
			Logger.Log.Infof("module %s finished execution", module.Name())
		}(e.Modules[idx])
	}

	wg.Wait()
}

// Shutdown cancels the context every module runs under. It doesn't wait, Run
// returns once all modules exit.
func (e *Engine) Shutdown() {
	Logger.Log.Infoln("starting graceful shutdown process")
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}
