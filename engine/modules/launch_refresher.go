package modules

import (
	"context"

	Logger "github.com/Luismorlan/postsync/utils/log"
)

type Refresher interface {
	Refresh(ctx context.Context) error
}

type LaunchRefresherConfig struct {
	Name string
}

// LaunchRefresher runs a single refresh when the service starts and exits. A
// failed refresh is not retried, cached posts keep being served and the next
// refresh is up to the user.
type LaunchRefresher struct {
	Config LaunchRefresherConfig

	Refresher Refresher
}

func NewLaunchRefresher(config LaunchRefresherConfig, refresher Refresher) *LaunchRefresher {
	return &LaunchRefresher{Config: config, Refresher: refresher}
}

func (l *LaunchRefresher) RunModule(ctx context.Context) error {
	if err := l.Refresher.Refresh(ctx); err != nil {
		Logger.Log.Errorf("launch refresh failed, serving cached posts, error: %s", err)
		return nil
	}
	Logger.Log.Infoln("launch refresh finished")
	return nil
}

func (l *LaunchRefresher) Name() string {
	return l.Config.Name
}
