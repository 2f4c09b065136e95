package modules

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/Luismorlan/postsync/reconciler"
	"github.com/Luismorlan/postsync/store"
	"github.com/Luismorlan/postsync/utils/dotenv"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

type metric struct {
	Name string
	Tags []string
}

// recordingStatsd records counters and gauges, everything else is dropped.
type recordingStatsd struct {
	statsd.NoOpClient

	mu      sync.Mutex
	metrics []metric
}

func (c *recordingStatsd) record(name string, tags []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, metric{Name: name, Tags: tags})
	return nil
}

func (c *recordingStatsd) Incr(name string, tags []string, rate float64) error {
	return c.record(name, tags)
}

func (c *recordingStatsd) Gauge(name string, value float64, tags []string, rate float64) error {
	return c.record(name, tags)
}

func (c *recordingStatsd) recorded() []metric {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]metric{}, c.metrics...)
}

func TestReportRefreshResult(t *testing.T) {
	client := &recordingStatsd{}
	now := time.Now()

	ReportRefreshResult(reconciler.RefreshResult{Success: true, PostCount: 2, StartedAt: now, FinishedAt: now}, client)
	ReportRefreshResult(reconciler.RefreshResult{Stage: reconciler.RefreshStageFetch, StartedAt: now, FinishedAt: now}, client)

	assert.Equal(t, []metric{
		{Name: DDOG_REFRESH_COUNTER, Tags: []string{"state:success"}},
		{Name: DDOG_REFRESH_POSTS, Tags: []string{"state:success"}},
		{Name: DDOG_REFRESH_COUNTER, Tags: []string{"state:failure", "stage:fetch"}},
	}, client.recorded())
}

func TestReporter_RunModule(t *testing.T) {
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer bus.Close()
	client := &recordingStatsd{}
	reporter := NewReporter(ReporterConfig{Name: "reporter"}, client, bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- reporter.RunModule(ctx) }()

	change, _ := json.Marshal(store.RemoteChange{Token: 1, ContextName: store.ImportContextName, Author: store.ImportAuthor})
	want := metric{Name: DDOG_REMOTE_CHANGE_COUNTER, Tags: []string{"context:importContext", "author:importPosts"}}

	// Subscriptions are set up asynchronously, keep publishing until the
	// reporter picks one up.
	require.Eventually(t, func() bool {
		_ = bus.Publish(store.TopicRemoteChange, message.NewMessage(watermill.NewUUID(), change))
		for _, m := range client.recorded() {
			if assert.ObjectsAreEqual(want, m) {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reporter didn't stop")
	}
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestLaunchRefresher(t *testing.T) {
	refresher := &fakeRefresher{}
	assert.NoError(t, NewLaunchRefresher(LaunchRefresherConfig{Name: "launch_refresher"}, refresher).RunModule(context.Background()))
	assert.Equal(t, 1, refresher.calls)
}

func TestLaunchRefresher_FailureIsNotRetried(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("offline")}
	assert.NoError(t, NewLaunchRefresher(LaunchRefresherConfig{Name: "launch_refresher"}, refresher).RunModule(context.Background()))
	assert.Equal(t, 1, refresher.calls)
}
