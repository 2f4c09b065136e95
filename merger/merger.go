package merger

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Luismorlan/postsync/model"
	"github.com/Luismorlan/postsync/store"
	"github.com/Luismorlan/postsync/utils"
	Logger "github.com/Luismorlan/postsync/utils/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

// HistoryReader is the part of a store.Context the merger reads from.
type HistoryReader interface {
	SubscribeToChanges(ctx context.Context, since model.Token) ([]model.ChangeRecord, model.Token, error)
	GetByIds(ctx context.Context, ids []int64) ([]model.Post, error)
}

// Projection is an in-memory view kept coherent with the store, e.g.
// view.PostList.
type Projection interface {
	Refresh(posts []model.Post, deletedIds []int64)
}

type MergerConfig struct {
	Name string
}

// Merger replays the store history committed by other contexts onto the
// projections. It remembers the token of the last transaction it applied so
// every transaction is applied once and in commit order.
type Merger struct {
	Config MergerConfig

	Reader      HistoryReader
	Projections []Projection

	// Optional, RunModule needs it to learn about remote changes.
	Subscriber message.Subscriber

	mu        sync.Mutex
	lastToken model.Token
}

func NewMerger(config MergerConfig, reader HistoryReader, subscriber message.Subscriber, projections ...Projection) *Merger {
	return &Merger{
		Config:      config,
		Reader:      reader,
		Projections: projections,
		Subscriber:  subscriber,
	}
}

func (m *Merger) LastToken() model.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastToken
}

// MergeIncoming pulls every transaction after the last applied token and
// applies it. Failures are logged and dropped, the next notification retries
// from the same token.
func (m *Merger) MergeIncoming(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, _, err := m.Reader.SubscribeToChanges(ctx, m.lastToken)
	if err != nil {
		Logger.Log.Errorf("fail to read change history since token %d, error: %s", m.lastToken, err)
		return
	}
	if len(records) == 0 {
		return
	}
	if err := m.apply(ctx, records); err != nil {
		Logger.Log.Errorf("fail to merge change history, stopped at token %d, error: %s", m.lastToken, err)
	}
}

// Apply merges records, which must be in commit order. Records at or before
// the last applied token are skipped, so replaying a batch changes nothing.
func (m *Merger) Apply(ctx context.Context, records []model.ChangeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apply(ctx, records)
}

func (m *Merger) apply(ctx context.Context, records []model.ChangeRecord) error {
	for _, rec := range records {
		if rec.Token <= m.lastToken {
			continue
		}

		upserted := utils.UniqueInt64(rec.UpsertedIds())
		posts, err := m.Reader.GetByIds(ctx, upserted)
		if err != nil {
			return errors.Wrapf(err, "fail to load posts of transaction %d", rec.Token)
		}

		// A post upserted here but deleted by a later transaction is gone
		// from the store already.
		deleted := rec.DeletedIds()
		found := model.PostIds(posts)
		for _, id := range upserted {
			if !utils.ContainsInt64(found, id) {
				deleted = append(deleted, id)
			}
		}

		for _, p := range m.Projections {
			p.Refresh(posts, deleted)
		}
		m.lastToken = rec.Token
	}
	return nil
}

// RunModule merges once to catch up, then again on every store notification
// until ctx is done.
func (m *Merger) RunModule(ctx context.Context) error {
	if m.Subscriber == nil {
		return errors.New("merger has no subscriber")
	}
	messages, err := m.Subscriber.Subscribe(ctx, store.TopicRemoteChange)
	if err != nil {
		return err
	}

	m.MergeIncoming(ctx)
	for msg := range messages {
		msg.Ack()

		var change store.RemoteChange
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			Logger.Log.Errorf("fail to unmarshal remote change, error: %s", err)
			continue
		}
		if change.Token <= m.LastToken() {
			continue
		}
		m.MergeIncoming(ctx)
	}
	return nil
}

func (m *Merger) Name() string {
	return m.Config.Name
}
