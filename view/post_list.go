package view

import (
	"sort"
	"sync"

	"github.com/Luismorlan/postsync/model"
)

// PostList is an in-memory projection of the posts table, kept in sync by the
// merger. It is safe for concurrent use.
type PostList struct {
	mu    sync.RWMutex
	posts map[int64]model.Post
}

func NewPostList() *PostList {
	return &PostList{posts: make(map[int64]model.Post)}
}

func (l *PostList) Name() string {
	return "post_list"
}

// Refresh replaces the projected copy of every post in posts and drops every
// id in deletedIds. Applying the same refresh twice leaves the list unchanged.
func (l *PostList) Refresh(posts []model.Post, deletedIds []int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range deletedIds {
		delete(l.posts, id)
	}
	for _, p := range posts {
		l.posts[p.Id] = p
	}
}

// Snapshot returns a copy of all posts ordered by id descending.
func (l *PostList) Snapshot() []model.Post {
	l.mu.RLock()
	res := make([]model.Post, 0, len(l.posts))
	for _, p := range l.posts {
		res = append(res, p)
	}
	l.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].Id > res[j].Id })
	return res
}

func (l *PostList) Get(id int64) (model.Post, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.posts[id]
	return p, ok
}

func (l *PostList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.posts)
}
