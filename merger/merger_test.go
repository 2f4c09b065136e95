package merger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Luismorlan/postsync/model"
	"github.com/Luismorlan/postsync/store"
	"github.com/Luismorlan/postsync/utils"
	"github.com/Luismorlan/postsync/utils/dotenv"
	"github.com/Luismorlan/postsync/view"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

func testPost(id int64) model.Post {
	return model.Post{Id: id, UserId: 1, Title: "title", Body: "body"}
}

func newTestMerger(t *testing.T) (*store.Store, *Merger, *view.PostList) {
	db, _ := utils.CreateTempDB(t)
	s := store.New(db, nil)
	list := view.NewPostList()
	return s, NewMerger(MergerConfig{Name: "merger"}, s.HistoryContext(), nil, list), list
}

func requireInSync(t *testing.T, s *store.Store, list *view.PostList) {
	t.Helper()
	posts, err := s.ViewContext().QueryAll(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(posts, list.Snapshot()); diff != "" {
		t.Errorf("projection out of sync with store (-store +projection):\n%s", diff)
	}
}

func TestMergeIncoming_Empty(t *testing.T) {
	_, m, list := newTestMerger(t)
	m.MergeIncoming(context.Background())

	assert.Equal(t, model.Token(0), m.LastToken())
	assert.Equal(t, 0, list.Len())
}

func TestMergeIncoming(t *testing.T) {
	s, m, list := newTestMerger(t)
	ctx := context.Background()

	require.NoError(t, s.ImportContext().UpsertBatch(ctx, []model.Post{testPost(3), testPost(1), testPost(2)}))
	require.NoError(t, s.ViewContext().MarkRead(ctx, 2))
	require.NoError(t, s.DeleteContext().DeleteBatch(ctx, []int64{1}))

	m.MergeIncoming(ctx)
	assert.Equal(t, model.Token(3), m.LastToken())
	requireInSync(t, s, list)

	p, ok := list.Get(2)
	require.True(t, ok)
	assert.True(t, p.Read)
}

func TestMergeIncoming_UpsertedThenDeleted(t *testing.T) {
	s, m, list := newTestMerger(t)
	ctx := context.Background()

	require.NoError(t, s.ImportContext().UpsertBatch(ctx, []model.Post{testPost(1)}))
	m.MergeIncoming(ctx)
	require.Equal(t, 1, list.Len())

	require.NoError(t, s.ImportContext().UpsertBatch(ctx, []model.Post{testPost(1), testPost(2)}))
	require.NoError(t, s.DeleteContext().DeleteBatch(ctx, []int64{1, 2}))

	m.MergeIncoming(ctx)
	assert.Equal(t, 0, list.Len())
	assert.Equal(t, model.Token(3), m.LastToken())
}

func TestApply_Idempotent(t *testing.T) {
	s, m, list := newTestMerger(t)
	ctx := context.Background()

	require.NoError(t, s.ImportContext().UpsertBatch(ctx, []model.Post{testPost(1), testPost(2)}))
	require.NoError(t, s.ViewContext().MarkRead(ctx, 1))
	records, token, err := s.HistoryContext().SubscribeToChanges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, m.Apply(ctx, records))
	assert.Equal(t, token, m.LastToken())
	first := list.Snapshot()

	require.NoError(t, m.Apply(ctx, records))
	assert.Equal(t, token, m.LastToken())
	assert.Equal(t, first, list.Snapshot())

	// An older prefix never moves the token back.
	require.NoError(t, m.Apply(ctx, records[:1]))
	assert.Equal(t, token, m.LastToken())
	assert.Equal(t, first, list.Snapshot())
}

type failingReader struct {
	HistoryReader
	err error
}

func (r failingReader) SubscribeToChanges(ctx context.Context, since model.Token) ([]model.ChangeRecord, model.Token, error) {
	return nil, since, r.err
}

func TestMergeIncoming_SwallowsError(t *testing.T) {
	list := view.NewPostList()
	m := NewMerger(MergerConfig{Name: "merger"}, failingReader{err: errors.New("history unavailable")}, nil, list)

	m.MergeIncoming(context.Background())
	assert.Equal(t, model.Token(0), m.LastToken())
	assert.Equal(t, 0, list.Len())
}

type partialReader struct {
	*store.Context
}

func (r partialReader) GetByIds(ctx context.Context, ids []int64) ([]model.Post, error) {
	if utils.ContainsInt64(ids, 2) {
		return nil, errors.New("read failed")
	}
	return r.Context.GetByIds(ctx, ids)
}

func TestApply_StopsAtFailedRecord(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	s := store.New(db, nil)
	ctx := context.Background()
	list := view.NewPostList()
	m := NewMerger(MergerConfig{Name: "merger"}, partialReader{s.HistoryContext()}, nil, list)

	require.NoError(t, s.ImportContext().UpsertBatch(ctx, []model.Post{testPost(1)}))
	require.NoError(t, s.ImportContext().UpsertBatch(ctx, []model.Post{testPost(2)}))
	records, _, err := s.HistoryContext().SubscribeToChanges(ctx, 0)
	require.NoError(t, err)

	assert.Error(t, m.Apply(ctx, records))
	assert.Equal(t, records[0].Token, m.LastToken())
	assert.Equal(t, 1, list.Len())
}

func TestRunModule(t *testing.T) {
	db, _ := utils.CreateTempDB(t)
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer bus.Close()
	s := store.New(db, bus)
	list := view.NewPostList()
	m := NewMerger(MergerConfig{Name: "merger"}, s.HistoryContext(), bus, list)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- m.RunModule(ctx) }()

	require.NoError(t, s.ImportContext().UpsertBatch(context.Background(), []model.Post{testPost(1), testPost(2)}))
	require.Eventually(t, func() bool { return list.Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, s.ViewContext().MarkRead(context.Background(), 2))
	require.Eventually(t, func() bool {
		p, _ := list.Get(2)
		return p.Read
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, model.Token(2), m.LastToken())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("merger didn't stop")
	}
}

func TestRunModule_NoSubscriber(t *testing.T) {
	_, m, _ := newTestMerger(t)
	assert.Error(t, m.RunModule(context.Background()))
}
