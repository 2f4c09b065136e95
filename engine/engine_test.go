package engine

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Luismorlan/postsync/utils/dotenv"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	GracefulRetryDelay = 10 * time.Millisecond
	os.Exit(m.Run())
}

type flakyModule struct {
	failures int32
	runs     int32
}

func (m *flakyModule) RunModule(ctx context.Context) error {
	if atomic.AddInt32(&m.runs, 1) <= m.failures {
		return errors.New("flaky")
	}
	return nil
}

func (m *flakyModule) Name() string { return "flaky" }

type blockingModule struct {
	started chan struct{}
}

func (m *blockingModule) RunModule(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return nil
}

func (m *blockingModule) Name() string { return "blocking" }

func TestRunModuleWithGracefulRestart(t *testing.T) {
	m := &flakyModule{failures: 2}
	RunModuleWithGracefulRestart(context.Background(), m)
	assert.Equal(t, int32(3), atomic.LoadInt32(&m.runs))
}

func TestRunModuleWithGracefulRestart_StopsOnCancel(t *testing.T) {
	m := &flakyModule{failures: 1000}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	RunModuleWithGracefulRestart(ctx, m)
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.runs))
}

func TestEngine_Shutdown(t *testing.T) {
	blocking := &blockingModule{started: make(chan struct{})}
	flaky := &flakyModule{failures: 1}
	e := NewEngine([]Module{blocking, flaky}, nil)

	done := make(chan struct{})
	go func() {
		e.Run(context.Background())
		close(done)
	}()

	<-blocking.started
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&flaky.runs) == 2
	}, 5*time.Second, 5*time.Millisecond)
	e.Shutdown()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine didn't stop after shutdown")
	}
}
