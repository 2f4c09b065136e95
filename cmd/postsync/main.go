package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/Luismorlan/postsync/app_setting"
	"github.com/Luismorlan/postsync/collector"
	"github.com/Luismorlan/postsync/collector/clients"
	"github.com/Luismorlan/postsync/engine"
	"github.com/Luismorlan/postsync/engine/modules"
	"github.com/Luismorlan/postsync/merger"
	"github.com/Luismorlan/postsync/reconciler"
	"github.com/Luismorlan/postsync/server"
	"github.com/Luismorlan/postsync/store"
	. "github.com/Luismorlan/postsync/utils"
	"github.com/Luismorlan/postsync/utils/dotenv"
	"github.com/Luismorlan/postsync/utils/flag"
	. "github.com/Luismorlan/postsync/utils/log"
	"github.com/Luismorlan/postsync/view"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

var (
	// Configuration to customize binary startup.
	AppSetting app_setting.AppSetting
)

func cleanup() {
	CloseProfiler()
	CloseTracer()
	Log.Info("postsync server shutdown")
}

func NewDogStatsdClient(addr string) statsd.ClientInterface {
	if addr == "" {
		Log.Info("STATSD_ADDR not set, metrics are dropped")
		return &statsd.NoOpClient{}
	}
	client, err := statsd.New(addr)
	if err != nil {
		panic(err)
	}
	return client
}

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	// Pick up the service flag and the env loaded from .env files.
	InitLogger()

	StartTracer()
	StartProfiler()
	defer cleanup()

	var err error
	AppSetting, err = app_setting.LoadAppSetting(*flag.AppSettingPath)
	if err != nil {
		panic(err)
	}

	eventbus := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            100,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)
	defer eventbus.Close()

	s, err := store.Open(AppSetting, eventbus)
	if err != nil {
		panic(err)
	}
	defer s.Close()

	postList := view.NewPostList()
	postMerger := merger.NewMerger(merger.MergerConfig{Name: "merger"}, s.HistoryContext(), eventbus, postList)
	refresher := reconciler.NewReconciler(
		collector.NewPostCollector(AppSetting.REMOTE_POSTS_URI, clients.NewDefaultHttpClient()),
		s.ImportContext(),
		eventbus,
	)
	router := server.NewRouter(&server.Handlers{
		Posts:      s.ViewContext(),
		Deleter:    s.DeleteContext(),
		Refresher:  refresher,
		Projection: postList,
		Merger:     postMerger,
	}, *flag.ServiceName)

	// Initialize all engine modules here.
	ms := []engine.Module{
		// Reporter reports refresh results and store writes to datadog.
		modules.NewReporter(modules.ReporterConfig{Name: "reporter"}, NewDogStatsdClient(AppSetting.STATSD_ADDR), eventbus),
		// Merger keeps the in-memory post list in sync with writes made by the
		// import and delete contexts.
		postMerger,
		server.NewApiServer(server.ApiServerConfig{Name: "api_server", Addr: AppSetting.LISTEN_ADDR}, router),
	}
	if AppSetting.REFRESH_ON_LAUNCH {
		ms = append(ms, modules.NewLaunchRefresher(modules.LaunchRefresherConfig{Name: "launch_refresher"}, refresher))
	}

	e := engine.NewEngine(ms, eventbus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		e.Shutdown()
	}()

	Log.Info("postsync server starts up")
	// blocking call.
	e.Run(ctx)
}
