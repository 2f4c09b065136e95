package engine

import (
	"context"
	"time"

	Logger "github.com/Luismorlan/postsync/utils/log"
)

var (
	GracefulRetryDelay = 3 * time.Second
)

// RunModuleWithGracefulRestart reruns module after a delay every time it
// returns an error, until it returns nil or ctx is done.
func RunModuleWithGracefulRestart(ctx context.Context, module Module) {
	for {
		err := module.RunModule(ctx)
		if err == nil {
			return
		}
		Logger.Log.Errorf(
			"module %s exited with error %v, retry in %s",
			module.Name(),
			err,
			GracefulRetryDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(GracefulRetryDelay):
		}
	}
}

type Module interface {
	// RunModule contains the customized logic of the module. Its lifecycle is
	// managed by ctx. Returning an error restarts the module.
	RunModule(ctx context.Context) error

	// Name uniquely identifies the module instance.
	Name() string
}
