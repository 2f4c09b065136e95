package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireMalformed(t *testing.T, err error) *DecodeError {
	t.Helper()
	require.Error(t, err)
	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr), "expect DecodeError, got %T", err)
	assert.Equal(t, DecodeErrorMalformed, decodeErr.Kind)
	return decodeErr
}

func TestDecodePost(t *testing.T) {
	post, err := DecodePost([]byte(`{"userId": 7, "id": 3, "title": "t", "body": "b"}`))
	require.NoError(t, err)
	assert.Equal(t, Post{Id: 3, UserId: 7, Title: "t", Body: "b", Read: false}, *post)
}

func TestDecodePost_IgnoresRead(t *testing.T) {
	post, err := DecodePost([]byte(`{"userId": 7, "id": 3, "title": "t", "body": "b", "read": true}`))
	require.NoError(t, err)
	assert.False(t, post.Read)
}

func TestDecodePost_AllowsEmptyTitle(t *testing.T) {
	post, err := DecodePost([]byte(`{"userId": 1, "id": 1, "title": "", "body": ""}`))
	require.NoError(t, err)
	assert.Equal(t, "", post.Title)
}

func TestDecodePost_Malformed(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		field string
	}{
		{"missing id", `{"userId": 1, "title": "t", "body": "b"}`, "id"},
		{"null id", `{"id": null, "userId": 1, "title": "t", "body": "b"}`, "id"},
		{"string id", `{"id": "1", "userId": 1, "title": "t", "body": "b"}`, "id"},
		{"float id", `{"id": 1.5, "userId": 1, "title": "t", "body": "b"}`, "id"},
		{"missing userId", `{"id": 1, "title": "t", "body": "b"}`, "userId"},
		{"wrong case userId", `{"id": 1, "userid": 1, "title": "t", "body": "b"}`, "userId"},
		{"numeric title", `{"id": 1, "userId": 1, "title": 5, "body": "b"}`, "title"},
		{"missing body", `{"id": 1, "userId": 1, "title": "t"}`, "body"},
		{"array body", `{"id": 1, "userId": 1, "title": "t", "body": []}`, "body"},
		{"not an object", `[1, 2]`, ""},
		{"null", `null`, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			post, err := DecodePost([]byte(tc.input))
			assert.Nil(t, post)
			decodeErr := requireMalformed(t, err)
			assert.Equal(t, tc.field, decodeErr.Field)
		})
	}
}

func TestDecodePosts(t *testing.T) {
	posts, err := DecodePosts([]byte(`[
		{"userId": 1, "id": 1, "title": "first", "body": "one"},
		{"userId": 1, "id": 2, "title": "second", "body": "two"}
	]`))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]Post{
		{Id: 1, UserId: 1, Title: "first", Body: "one"},
		{Id: 2, UserId: 1, Title: "second", Body: "two"},
	}, posts))
}

func TestDecodePosts_Empty(t *testing.T) {
	posts, err := DecodePosts([]byte(`[]`))
	require.NoError(t, err)
	assert.Len(t, posts, 0)
}

func TestDecodePosts_BOM(t *testing.T) {
	posts, err := DecodePosts([]byte("\xef\xbb\xbf" + `[{"userId": 1, "id": 1, "title": "t", "body": "b"}]`))
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestDecodePosts_AllOrNothing(t *testing.T) {
	posts, err := DecodePosts([]byte(`[
		{"userId": 1, "id": 1, "title": "first", "body": "one"},
		{"userId": 1, "id": 2, "title": "second"},
		{"userId": 1, "id": 3, "title": "third", "body": "three"}
	]`))
	assert.Nil(t, posts)
	decodeErr := requireMalformed(t, err)
	assert.Equal(t, 1, decodeErr.Index)
	assert.Equal(t, "body", decodeErr.Field)
}

func TestDecodePosts_NotAnArray(t *testing.T) {
	for _, input := range []string{`{"id": 1}`, `null`, `not json`, ``} {
		_, err := DecodePosts([]byte(input))
		decodeErr := requireMalformed(t, err)
		assert.Equal(t, -1, decodeErr.Index, input)
	}
}

func TestDecodeThenUpsertPayload(t *testing.T) {
	raw := `[
		{"userId": 10, "id": 100, "title": "sunt aut facere", "body": "quia et suscipit", "read": true},
		{"userId": -4, "id": 9223372036854775807, "title": "ünïcødé", "body": "line\nbreak"}
	]`
	posts, err := DecodePosts([]byte(raw))
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, map[string]interface{}{
		"id":      int64(100),
		"user_id": int64(10),
		"title":   "sunt aut facere",
		"body":    "quia et suscipit",
		"read":    false,
	}, posts[0].ToUpsertPayload())
	assert.Equal(t, map[string]interface{}{
		"id":      int64(9223372036854775807),
		"user_id": int64(-4),
		"title":   "ünïcødé",
		"body":    "line\nbreak",
		"read":    false,
	}, posts[1].ToUpsertPayload())
}

func TestPostIds(t *testing.T) {
	assert.Equal(t, []int64{3, 1}, PostIds([]Post{{Id: 3}, {Id: 1}}))
	assert.Equal(t, []int64{}, PostIds(nil))
}
