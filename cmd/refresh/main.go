package main

import (
	"context"
	"os"

	"github.com/Luismorlan/postsync/app_setting"
	"github.com/Luismorlan/postsync/collector"
	"github.com/Luismorlan/postsync/reconciler"
	"github.com/Luismorlan/postsync/store"
	"github.com/Luismorlan/postsync/utils/dotenv"
	"github.com/Luismorlan/postsync/utils/flag"
	. "github.com/Luismorlan/postsync/utils/log"
	"github.com/pkg/errors"
)

// refresh runs a single refresh against the configured store and exits. It
// writes through the import context like the server does, a running server
// picks the change up from the store history.
func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	// Pick up the service flag and the env loaded from .env files.
	InitLogger()

	setting, err := app_setting.LoadAppSetting(*flag.AppSettingPath)
	if err != nil {
		panic(err)
	}

	s, err := store.Open(setting, nil)
	if err != nil {
		panic(err)
	}
	defer s.Close()

	r := reconciler.NewReconciler(collector.NewPostCollector(setting.REMOTE_POSTS_URI, nil), s.ImportContext(), nil)
	if err := r.Refresh(context.Background()); err != nil {
		var refreshErr *reconciler.RefreshError
		if errors.As(err, &refreshErr) {
			Log.Errorf("refresh failed at stage %s, cached posts are untouched", refreshErr.Stage)
		}
		s.Close()
		os.Exit(1)
	}

	posts, err := s.ViewContext().QueryAll(context.Background())
	if err != nil {
		panic(err)
	}
	Log.Infof("refresh finished, %d posts cached", len(posts))
}
