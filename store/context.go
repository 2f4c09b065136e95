package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Luismorlan/postsync/model"
	"github.com/Luismorlan/postsync/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Context is a named handle on the Store. All mutations issued through one
// Context are serialized and each is atomic. Serialization across contexts is
// left to the database.
type Context struct {
	store  *Store
	name   string
	author string

	mu sync.Mutex
}

func (c *Context) Name() string {
	return c.name
}

func (c *Context) Author() string {
	return c.author
}

// write runs fn and the history insert in one transaction, then notifies
// observers once committed. fn returns the changes it made, no history is
// recorded when it returns none.
func (c *Context) write(ctx context.Context, fn func(tx *gorm.DB) ([]model.Change, error)) (model.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var token model.Token
	err := c.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockHistory(tx); err != nil {
			return err
		}
		changes, err := fn(tx)
		if err != nil || len(changes) == 0 {
			return err
		}
		history, err := model.NewHistoryTransaction(uuid.NewString(), c.author, c.name, changes)
		if err != nil {
			return err
		}
		if err := tx.Create(history).Error; err != nil {
			return err
		}
		token = history.Token
		return nil
	})
	if err != nil {
		return 0, err
	}

	if token != 0 {
		c.store.notify(RemoteChange{Token: token, ContextName: c.name, Author: c.author})
	}
	return token, nil
}

// dedupPosts keeps the last occurrence of every id, a single upsert statement
// can't touch the same row twice.
func dedupPosts(posts []model.Post) []model.Post {
	index := make(map[int64]int, len(posts))
	res := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if i, ok := index[p.Id]; ok {
			res[i] = p
			continue
		}
		index[p.Id] = len(res)
		res = append(res, p)
	}
	return res
}

// UpsertBatch inserts or updates posts keyed by id in one transaction. On an
// existing id only userId, title and body are overwritten: the read flag is
// written at first insertion and left untouched afterwards, so refreshing
// never resets a post that was already read. Empty input is a no-op.
func (c *Context) UpsertBatch(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	posts = dedupPosts(posts)

	_, err := c.write(ctx, func(tx *gorm.DB) ([]model.Change, error) {
		existing, err := existingIds(tx, model.PostIds(posts))
		if err != nil {
			return nil, err
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: model.ColumnId}},
			DoUpdates: clause.AssignmentColumns(model.RemoteColumns),
		}).CreateInBatches(&posts, upsertBatchSize).Error
		if err != nil {
			return nil, err
		}

		changes := make([]model.Change, 0, len(posts))
		for _, p := range posts {
			kind := model.ChangeInsert
			if existing[p.Id] {
				kind = model.ChangeUpdate
			}
			changes = append(changes, model.Change{PostId: p.Id, Kind: kind})
		}
		return changes, nil
	})
	return newStoreError(OpUpsert, err)
}

// DeleteBatch removes every listed post atomically. Ids that don't exist are
// ignored. Empty input is a no-op.
func (c *Context) DeleteBatch(ctx context.Context, ids []int64) error {
	ids = utils.UniqueInt64(ids)
	if len(ids) == 0 {
		return nil
	}

	_, err := c.write(ctx, func(tx *gorm.DB) ([]model.Change, error) {
		existing, err := existingIds(tx, ids)
		if err != nil {
			return nil, err
		}
		if len(existing) == 0 {
			return nil, nil
		}
		for _, chunk := range chunkIds(ids) {
			if err := tx.Where("id IN ?", chunk).Delete(&model.Post{}).Error; err != nil {
				return nil, err
			}
		}

		changes := []model.Change{}
		for _, id := range ids {
			if existing[id] {
				changes = append(changes, model.Change{PostId: id, Kind: model.ChangeDelete})
			}
		}
		return changes, nil
	})
	return newStoreError(OpDelete, err)
}

// MarkRead sets read = true on the post with the given id. The write is
// committed before MarkRead returns. An unknown or already read id succeeds
// without effect.
func (c *Context) MarkRead(ctx context.Context, id int64) error {
	_, err := c.write(ctx, func(tx *gorm.DB) ([]model.Change, error) {
		// Already read posts don't match, a repeated call records nothing.
		res := tx.Model(&model.Post{}).Where(map[string]interface{}{model.ColumnId: id, model.ColumnRead: false}).Update(model.ColumnRead, true)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, nil
		}
		return []model.Change{{PostId: id, Kind: model.ChangeUpdate}}, nil
	})
	return newStoreError(OpMarkRead, err)
}

// QueryAll returns every stored post ordered by id descending. The order is
// what list clients render.
func (c *Context) QueryAll(ctx context.Context) ([]model.Post, error) {
	posts := []model.Post{}
	err := c.store.db.WithContext(ctx).Order(orderByIdDesc()).Find(&posts).Error
	if err != nil {
		return nil, newStoreError(OpQuery, err)
	}
	return posts, nil
}

// GetByIds returns the stored posts among ids, ordered by id descending.
// Unknown ids are skipped.
func (c *Context) GetByIds(ctx context.Context, ids []int64) ([]model.Post, error) {
	posts := []model.Post{}
	if len(ids) == 0 {
		return posts, nil
	}
	for _, chunk := range chunkIds(ids) {
		var found []model.Post
		err := c.store.db.WithContext(ctx).Where("id IN ?", chunk).Find(&found).Error
		if err != nil {
			return nil, newStoreError(OpQuery, err)
		}
		posts = append(posts, found...)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].Id > posts[j].Id })
	return posts, nil
}

// Get returns a single post, found is false when the id isn't stored.
func (c *Context) Get(ctx context.Context, id int64) (post model.Post, found bool, err error) {
	posts, err := c.GetByIds(ctx, []int64{id})
	if err != nil || len(posts) == 0 {
		return model.Post{}, false, err
	}
	return posts[0], true, nil
}

// SubscribeToChanges returns every history transaction committed after since,
// in commit order, together with the token of the last one. When nothing new
// was committed the returned token is since itself. Pass the zero token to
// read from the beginning.
func (c *Context) SubscribeToChanges(ctx context.Context, since model.Token) ([]model.ChangeRecord, model.Token, error) {
	var rows []model.HistoryTransaction
	err := c.store.db.WithContext(ctx).
		Where("token > ?", since).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "token"}}).
		Find(&rows).Error
	if err != nil {
		return nil, since, newStoreError(OpHistory, err)
	}

	records := make([]model.ChangeRecord, 0, len(rows))
	last := since
	for _, row := range rows {
		rec, err := row.ToChangeRecord()
		if err != nil {
			return nil, since, newStoreError(OpHistory, err)
		}
		records = append(records, rec)
		last = rec.Token
	}
	return records, last, nil
}
