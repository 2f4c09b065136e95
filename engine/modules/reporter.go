package modules

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/Luismorlan/postsync/reconciler"
	"github.com/Luismorlan/postsync/store"
	Logger "github.com/Luismorlan/postsync/utils/log"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	DDOG_REFRESH_COUNTER       = "postsync.refresh.count"
	DDOG_REFRESH_POSTS         = "postsync.refresh.posts"
	DDOG_REFRESH_LATENCY       = "postsync.refresh.latency"
	DDOG_REMOTE_CHANGE_COUNTER = "postsync.store.remote_change"
)

type ReporterConfig struct {
	Name string
}

// Reporter listens to refresh results and store notifications on the event
// bus and sends them to Datadog for monitoring.
type Reporter struct {
	Config ReporterConfig

	Statsd statsd.ClientInterface

	EventBus message.Subscriber
}

func NewReporter(config ReporterConfig, statsd statsd.ClientInterface, e message.Subscriber) *Reporter {
	return &Reporter{
		Config:   config,
		Statsd:   statsd,
		EventBus: e,
	}
}

// ReportRefreshResult reports one refresh to Datadog.
func ReportRefreshResult(result reconciler.RefreshResult, client statsd.ClientInterface) {
	state := "success"
	if !result.Success {
		state = "failure"
	}
	tags := []string{"state:" + state}
	if result.Stage != "" {
		tags = append(tags, "stage:"+string(result.Stage))
	}

	if err := client.Incr(DDOG_REFRESH_COUNTER, tags, 1); err != nil {
		Logger.Log.Infoln("cannot report refresh result")
	}
	if err := client.Timing(DDOG_REFRESH_LATENCY, result.FinishedAt.Sub(result.StartedAt), tags, 1); err != nil {
		Logger.Log.Infoln("cannot report refresh latency")
	}
	if result.Success {
		if err := client.Gauge(DDOG_REFRESH_POSTS, float64(result.PostCount), tags, 1); err != nil {
			Logger.Log.Infoln("cannot report refresh post count")
		}
	}
}

// ReportRemoteChange counts committed store writes per context and author.
func ReportRemoteChange(change store.RemoteChange, client statsd.ClientInterface) {
	err := client.Incr(DDOG_REMOTE_CHANGE_COUNTER,
		[]string{
			"context:" + change.ContextName,
			"author:" + change.Author,
		}, 1)
	if err != nil {
		Logger.Log.Infoln("cannot report remote change")
	}
}

func (r *Reporter) processRefreshResults(ctx context.Context) error {
	messages, err := r.EventBus.Subscribe(ctx, reconciler.TopicRefreshFinished)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		var result reconciler.RefreshResult
		if err := json.Unmarshal(msg.Payload, &result); err != nil {
			Logger.Log.Errorf("fail to unmarshal refresh result, error: %s", err)
			continue
		}
		ReportRefreshResult(result, r.Statsd)
	}
	return nil
}

func (r *Reporter) processRemoteChanges(ctx context.Context) error {
	messages, err := r.EventBus.Subscribe(ctx, store.TopicRemoteChange)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		var change store.RemoteChange
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			Logger.Log.Errorf("fail to unmarshal remote change, error: %s", err)
			continue
		}
		ReportRemoteChange(change, r.Statsd)
	}
	return nil
}

func (r *Reporter) RunModule(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, process := range []func(context.Context) error{r.processRefreshResults, r.processRemoteChanges} {
		wg.Add(1)
		go func(process func(context.Context) error) {
			defer wg.Done()
			if err := process(ctx); err != nil {
				errs <- err
				cancel()
			}
		}(process)
	}
	wg.Wait()
	close(errs)

	return <-errs
}

func (r *Reporter) Name() string {
	return r.Config.Name
}
