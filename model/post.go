package model

/*

Post is a single entry of the remote posts feed as stored locally.

Id: primary key, assigned by the remote source and stable across fetches
UserId: author reference, the user itself is not modeled
Title: post's title in plain text, expected non-empty but not enforced
Body: post's body in plain text
Read: local-only flag, never present in the remote representation. It is
	false at first insertion and only ever flipped by marking the post read,
	remote writes must not reset it.

*/

type Post struct {
	Id     int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	UserId int64  `gorm:"not null" json:"userId"`
	Title  string `gorm:"not null" json:"title"`
	Body   string `gorm:"not null" json:"body"`
	Read   bool   `gorm:"not null;default:false" json:"read"`
}

func (Post) TableName() string {
	return "posts"
}

// Column names of Post, shared by upsert and update statements.
const (
	ColumnId     = "id"
	ColumnUserId = "user_id"
	ColumnTitle  = "title"
	ColumnBody   = "body"
	ColumnRead   = "read"
)

// RemoteColumns are the columns a remote-sourced write is allowed to
// overwrite on an existing record.
var RemoteColumns = []string{ColumnUserId, ColumnTitle, ColumnBody}

// ToUpsertPayload returns the full set of persisted fields of the post keyed
// by column name, including the local read flag.
func (p Post) ToUpsertPayload() map[string]interface{} {
	return map[string]interface{}{
		ColumnId:     p.Id,
		ColumnUserId: p.UserId,
		ColumnTitle:  p.Title,
		ColumnBody:   p.Body,
		ColumnRead:   p.Read,
	}
}

// PostIds returns ids of posts in the given order.
func PostIds(posts []Post) []int64 {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.Id)
	}
	return ids
}
