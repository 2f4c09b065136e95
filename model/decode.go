package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type DecodeErrorKind string

const (
	// A required field is missing, null or has the wrong JSON type, or the
	// payload isn't the expected JSON shape at all.
	DecodeErrorMalformed DecodeErrorKind = "malformed"
)

// DecodeError is returned by DecodePost and DecodePosts. Index is the
// position of the offending element in the array, -1 when the array itself
// can't be parsed or when decoding a single post.
type DecodeError struct {
	Kind  DecodeErrorKind
	Index int
	Field string
	Cause error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode post: %s", e.Kind)
	if e.Index >= 0 {
		msg += fmt.Sprintf(" at index %d", e.Index)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

func malformed(field string, cause error) *DecodeError {
	return &DecodeError{Kind: DecodeErrorMalformed, Index: -1, Field: field, Cause: cause}
}

var errMissingField = errors.New("missing or null field")

// Remote JSON keys. read is deliberately absent, the remote never sends it.
const (
	jsonKeyId     = "id"
	jsonKeyUserId = "userId"
	jsonKeyTitle  = "title"
	jsonKeyBody   = "body"
)

var utf8BOM = []byte("\xef\xbb\xbf")

func requiredField(fields map[string]json.RawMessage, key string, dest interface{}) error {
	raw, ok := fields[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return malformed(key, errMissingField)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return malformed(key, err)
	}
	return nil
}

// DecodePost decodes one remote post object. id and userId must be JSON
// integers, title and body JSON strings. Keys are matched exactly. Any read
// key in the input is ignored: the returned post always has Read == false,
// the only defaulting done at this boundary.
func DecodePost(raw []byte) (*Post, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, malformed("", err)
	}
	if fields == nil {
		return nil, malformed("", errors.New("post is null"))
	}

	post := &Post{Read: false}
	if err := requiredField(fields, jsonKeyId, &post.Id); err != nil {
		return nil, err
	}
	if err := requiredField(fields, jsonKeyUserId, &post.UserId); err != nil {
		return nil, err
	}
	if err := requiredField(fields, jsonKeyTitle, &post.Title); err != nil {
		return nil, err
	}
	if err := requiredField(fields, jsonKeyBody, &post.Body); err != nil {
		return nil, err
	}
	return post, nil
}

// DecodePosts decodes a JSON array of remote posts. Decoding is all or
// nothing: the first element failing DecodePost fails the whole call.
func DecodePosts(raw []byte) ([]Post, error) {
	// Remove BOM before parsing, see https://en.wikipedia.org/wiki/Byte_order_mark for details.
	raw = bytes.TrimPrefix(raw, utf8BOM)

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, malformed("", err)
	}
	if elems == nil {
		return nil, malformed("", errors.New("posts array is null"))
	}

	posts := make([]Post, 0, len(elems))
	for i, elem := range elems {
		post, err := DecodePost(elem)
		if err != nil {
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				decodeErr.Index = i
			}
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}
