package store

import (
	"encoding/json"

	"github.com/Luismorlan/postsync/app_setting"
	"github.com/Luismorlan/postsync/model"
	"github.com/Luismorlan/postsync/utils"
	Logger "github.com/Luismorlan/postsync/utils/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// Every committed write publishes a RemoteChange onto this topic.
	TopicRemoteChange = "store.remote_change"

	// Conventional context names and transaction authors.
	ViewContextName    = "viewContext"
	ViewAuthor         = "markRead"
	ImportContextName  = "importContext"
	ImportAuthor       = "importPosts"
	DeleteContextName  = "deleteContext"
	DeleteAuthor       = "deletePosts"
	HistoryContextName = "persistentHistoryContext"

	upsertBatchSize = 500
)

// RemoteChange is the payload of TopicRemoteChange. It only tells observers
// that history moved forward, they read the actual changes through the change
// feed.
type RemoteChange struct {
	Token       model.Token `json:"token"`
	ContextName string      `json:"context_name"`
	Author      string      `json:"author"`
}

// Store is the local persistent post store. It is safe for concurrent use,
// writes are serialized per Context.
type Store struct {
	db *gorm.DB

	// Optional, nil disables change notifications.
	publisher message.Publisher

	view    *Context
	imports *Context
	deletes *Context
	history *Context
}

func New(db *gorm.DB, publisher message.Publisher) *Store {
	s := &Store{db: db, publisher: publisher}
	s.view = s.NewContext(ViewContextName, ViewAuthor)
	s.imports = s.NewContext(ImportContextName, ImportAuthor)
	s.deletes = s.NewContext(DeleteContextName, DeleteAuthor)
	s.history = s.NewContext(HistoryContextName, "")
	return s
}

// Open connects to the store configured by setting and migrates the schema.
func Open(setting app_setting.AppSetting, publisher message.Publisher) (*Store, error) {
	db, err := utils.GetDBConnection(setting.STORE_DRIVER, setting.STORE_DSN)
	if err != nil {
		return nil, newStoreError(OpOpen, err)
	}
	if err := utils.DatabaseSetupAndMigration(db); err != nil {
		return nil, newStoreError(OpOpen, err)
	}
	Logger.Log.Infof("store opened, driver: %s", setting.STORE_DRIVER)
	return New(db, publisher), nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	return utils.CloseDB(s.db)
}

// NewContext returns a named execution context. Writes issued through the
// same context are serialized, author is recorded on every history
// transaction the context commits.
func (s *Store) NewContext(name string, author string) *Context {
	return &Context{store: s, name: name, author: author}
}

// ViewContext is the interactive context: queries and marking posts read.
func (s *Store) ViewContext() *Context {
	return s.view
}

// ImportContext is the background context used by refresh.
func (s *Store) ImportContext() *Context {
	return s.imports
}

// DeleteContext is the background context used by batch deletes.
func (s *Store) DeleteContext() *Context {
	return s.deletes
}

// HistoryContext reads the change feed on behalf of the merger. It never
// writes.
func (s *Store) HistoryContext() *Context {
	return s.history
}

func (s *Store) notify(change RemoteChange) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(change)
	if err != nil {
		Logger.Log.Errorln("fail to encode remote change:", err)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.publisher.Publish(TopicRemoteChange, msg); err != nil {
		Logger.Log.Errorf("fail to publish remote change for token %d, error: %s", change.Token, err)
	}
}

// lockHistory makes concurrent writers commit in token order on postgres,
// where sequence values are handed out before commit. sqlite already runs a
// single writer.
func lockHistory(tx *gorm.DB) error {
	if tx.Dialector.Name() != utils.PostgresDriver {
		return nil
	}
	return tx.Exec("LOCK TABLE history_transactions IN SHARE ROW EXCLUSIVE MODE").Error
}

// chunkIds splits ids so that no statement binds more than upsertBatchSize
// variables, sqlite caps a statement at 32766.
func chunkIds(ids []int64) [][]int64 {
	chunks := make([][]int64, 0, len(ids)/upsertBatchSize+1)
	for len(ids) > upsertBatchSize {
		chunks = append(chunks, ids[:upsertBatchSize])
		ids = ids[upsertBatchSize:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

func existingIds(tx *gorm.DB, ids []int64) (map[int64]bool, error) {
	res := make(map[int64]bool, len(ids))
	for _, chunk := range chunkIds(ids) {
		var found []int64
		if err := tx.Model(&model.Post{}).Where("id IN ?", chunk).Pluck(model.ColumnId, &found).Error; err != nil {
			return nil, err
		}
		for _, id := range found {
			res[id] = true
		}
	}
	return res, nil
}

func orderByIdDesc() clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: model.ColumnId}, Desc: true}
}
