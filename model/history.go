package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Token is the change feed checkpoint. It is the auto-increment key of the
// history table, so it increases with commit order. The zero Token means "no
// transaction seen yet" and reads the history from the beginning.
type Token uint64

type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change is a single post touched by a history transaction.
type Change struct {
	PostId int64      `json:"post_id"`
	Kind   ChangeKind `json:"kind"`
}

/*

HistoryTransaction is one committed write against the posts table.

Token: auto-incremented key, also the change feed checkpoint
TransactionId: uuid of the transaction, stable across re-deliveries
Author: logical writer, e.g. "importPosts", "deletePosts"
ContextName: store context that committed the write, e.g. "importContext"
Changes: JSON encoded []Change

*/

type HistoryTransaction struct {
	Token         Token  `gorm:"primaryKey;autoIncrement"`
	TransactionId string `gorm:"uniqueIndex;not null"`
	Author        string
	ContextName   string
	Changes       datatypes.JSON
	CreatedAt     time.Time
}

func (HistoryTransaction) TableName() string {
	return "history_transactions"
}

// ChangeRecord is the decoded form of a HistoryTransaction returned by the
// change feed.
type ChangeRecord struct {
	Token         Token    `json:"token"`
	TransactionId string   `json:"transaction_id"`
	Author        string   `json:"author"`
	ContextName   string   `json:"context_name"`
	Changes       []Change `json:"changes"`
}

// NewHistoryTransaction encodes changes into a HistoryTransaction row ready to
// be inserted.
func NewHistoryTransaction(transactionId, author, contextName string, changes []Change) (*HistoryTransaction, error) {
	encoded, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}
	return &HistoryTransaction{
		TransactionId: transactionId,
		Author:        author,
		ContextName:   contextName,
		Changes:       datatypes.JSON(encoded),
	}, nil
}

// ToChangeRecord decodes the Changes column.
func (h HistoryTransaction) ToChangeRecord() (ChangeRecord, error) {
	rec := ChangeRecord{
		Token:         h.Token,
		TransactionId: h.TransactionId,
		Author:        h.Author,
		ContextName:   h.ContextName,
		Changes:       []Change{},
	}
	if len(h.Changes) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(h.Changes, &rec.Changes); err != nil {
		return rec, err
	}
	return rec, nil
}

// UpsertedIds returns ids inserted or updated by the transaction.
func (r ChangeRecord) UpsertedIds() []int64 {
	ids := []int64{}
	for _, c := range r.Changes {
		if c.Kind != ChangeDelete {
			ids = append(ids, c.PostId)
		}
	}
	return ids
}

// DeletedIds returns ids removed by the transaction.
func (r ChangeRecord) DeletedIds() []int64 {
	ids := []int64{}
	for _, c := range r.Changes {
		if c.Kind == ChangeDelete {
			ids = append(ids, c.PostId)
		}
	}
	return ids
}
