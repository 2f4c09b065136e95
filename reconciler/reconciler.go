package reconciler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Luismorlan/postsync/model"
	Logger "github.com/Luismorlan/postsync/utils/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	// Every refresh, successful or not, publishes a RefreshResult here.
	TopicRefreshFinished = "reconciler.refresh_finished"
)

// PostSource is implemented by collector.PostCollector.
type PostSource interface {
	FetchAll(ctx context.Context) ([]model.Post, error)
}

// PostWriter is implemented by store.Context.
type PostWriter interface {
	UpsertBatch(ctx context.Context, posts []model.Post) error
}

type RefreshResult struct {
	RunId      string       `json:"run_id"`
	Success    bool         `json:"success"`
	Stage      RefreshStage `json:"stage,omitempty"`
	Error      string       `json:"error,omitempty"`
	PostCount  int          `json:"post_count"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Reconciler copies the remote posts into the local store. It is triggered
// explicitly, on launch and on user request, and never on a timer.
//
// Refresh takes no lock. Two refreshes may run at once and whichever upsert
// commits last wins, which is harmless since both write the remote state.
type Reconciler struct {
	Source PostSource
	Store  PostWriter

	// Optional, receives a RefreshResult after every refresh.
	EventBus message.Publisher
}

func NewReconciler(source PostSource, store PostWriter, eventBus message.Publisher) *Reconciler {
	return &Reconciler{Source: source, Store: store, EventBus: eventBus}
}

// Refresh fetches every remote post and upserts them in one batch. A fetch
// failure writes nothing. Posts missing from the remote feed are kept, deletion
// is a separate operation.
func (r *Reconciler) Refresh(ctx context.Context) error {
	result := RefreshResult{RunId: uuid.NewString(), StartedAt: time.Now()}
	err := r.refresh(ctx, &result)
	result.FinishedAt = time.Now()
	if err != nil {
		result.Stage = err.Stage
		result.Error = err.Error()
		Logger.Log.Errorf("refresh %s failed, error: %s", result.RunId, err)
	} else {
		result.Success = true
		Logger.Log.Infof("refresh %s stored %d posts", result.RunId, result.PostCount)
	}
	r.publish(result)

	if err != nil {
		return err
	}
	return nil
}

func (r *Reconciler) refresh(ctx context.Context, result *RefreshResult) *RefreshError {
	posts, err := r.Source.FetchAll(ctx)
	if err != nil {
		return &RefreshError{Stage: RefreshStageFetch, Cause: err}
	}
	result.PostCount = len(posts)

	if err := r.Store.UpsertBatch(ctx, posts); err != nil {
		return &RefreshError{Stage: RefreshStageStore, Cause: err}
	}
	return nil
}

func (r *Reconciler) publish(result RefreshResult) {
	if r.EventBus == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		Logger.Log.Errorf("fail to marshal refresh result, error: %s", err)
		return
	}
	if err := r.EventBus.Publish(TopicRefreshFinished, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		Logger.Log.Errorf("fail to publish refresh result, error: %s", err)
	}
}
