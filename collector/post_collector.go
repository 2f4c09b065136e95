package collector

import (
	"context"
	"io/ioutil"

	"github.com/Luismorlan/postsync/collector/clients"
	"github.com/Luismorlan/postsync/model"
	Logger "github.com/Luismorlan/postsync/utils/log"
	"github.com/pkg/errors"
)

const (
	DefaultPostsUri = "https://jsonplaceholder.typicode.com/posts"
)

// PostCollector is the remote source of posts. It is stateless and safe for
// concurrent use.
type PostCollector struct {
	Uri    string
	Client *clients.HttpClient
}

func NewPostCollector(uri string, client *clients.HttpClient) *PostCollector {
	if uri == "" {
		uri = DefaultPostsUri
	}
	if client == nil {
		client = clients.NewDefaultHttpClient()
	}
	return &PostCollector{Uri: uri, Client: client}
}

// FetchAll issues one GET against the posts endpoint, with no query, paging
// or auth, and decodes the JSON array. Either every element decodes or the
// call fails, there is no partial result. No retry is attempted.
func (c *PostCollector) FetchAll(ctx context.Context) ([]model.Post, error) {
	res, err := c.Client.Get(ctx, c.Uri)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorTransport, Uri: c.Uri, Cause: err}
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorTransport, Uri: c.Uri, Cause: errors.Wrap(err, "fail to read response body")}
	}

	posts, err := model.DecodePosts(body)
	if err != nil {
		Logger.Log.Errorf("fail to parse posts response from %s, error: %s", c.Uri, err)
		return nil, &FetchError{Kind: FetchErrorDecode, Uri: c.Uri, Cause: err}
	}

	Logger.Log.Debugf("fetched %d posts from %s", len(posts), c.Uri)
	return posts, nil
}
