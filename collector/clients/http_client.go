package clients

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	Logger "github.com/Luismorlan/postsync/utils/log"
)

// Cap on how much of a non-200 body ends up in the log.
const maxLoggedBodyBytes = 4096

type HttpClient struct {
	header http.Header

	client *http.Client
}

// NewDefaultHttpClient uses a plain http.Client: no timeout override, no
// retry, redirects followed as the standard library does.
func NewDefaultHttpClient() *HttpClient {
	return &HttpClient{header: http.Header{}, client: &http.Client{}}
}

func NewHttpClient(header http.Header, client *http.Client) *HttpClient {
	if header == nil {
		header = http.Header{}
	}
	if client == nil {
		client = &http.Client{}
	}
	return &HttpClient{header: header, client: client}
}

// Get issues a single GET. It fails on transport error and on any status
// other than 200, in which case the response body is logged and closed.
// Callers own the body of the returned response.
func (c *HttpClient) Get(ctx context.Context, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header = c.header.Clone()

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	if IsNon200HttpResponse(res) {
		defer res.Body.Close()
		MaybeLogNon200HttpError(res)
		return nil, &StatusError{StatusCode: res.StatusCode, Uri: uri}
	}

	return res, nil
}

// StatusError is returned by Get for any response code other than 200.
type StatusError struct {
	StatusCode int
	Uri        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-200 http code %d from %s", e.StatusCode, e.Uri)
}

// Log http response if the status code is not 200
func MaybeLogNon200HttpError(res *http.Response) {
	if IsNon200HttpResponse(res) {
		Logger.Log.Errorf("non-200 http code: %d", res.StatusCode)
		LogHttpResponseBody(res)
	}
}

// Only an exact 200 counts as success, 2XX codes such as 204 don't carry the
// expected payload.
func IsNon200HttpResponse(res *http.Response) bool {
	return res.StatusCode != http.StatusOK
}

func LogHttpResponseBody(res *http.Response) {
	body, err := ioutil.ReadAll(io.LimitReader(res.Body, maxLoggedBodyBytes))
	if err == nil {
		Logger.Log.Errorln("response body is: ", string(body))
	}
}
