package api_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/locustsocial/feedsync/internal/api"
	"github.com/locustsocial/feedsync/internal/logger"
)

type fakeRankBackend struct {
	status int
	body   string
	err    error

	gotUID    string
	gotLimit  string
	gotCursor string
}

func (f *fakeRankBackend) RawRank(_ context.Context, uid, limit, cursor string) (*http.Response, error) {
	f.gotUID = uid
	f.gotLimit = limit
	f.gotCursor = cursor
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(f.body))),
	}, nil
}

func newProxyRouter(backend *fakeRankBackend) *gin.Engine {
	router := gin.New()
	handler := api.NewProxyHandler(backend, logger.NewNop())
	router.GET("/rankProxy", handler.Rank)
	return router
}

func TestRankProxy_PassthroughVerbatim(t *testing.T) {
	backend := &fakeRankBackend{status: http.StatusOK, body: `{"post_ids":["a"]}`}
	router := newProxyRouter(backend)

	w := get(router, "/rankProxy?uid=user-1&limit=15&cursor=30")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"post_ids":["a"]}`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "user-1", backend.gotUID)
	assert.Equal(t, "15", backend.gotLimit)
	assert.Equal(t, "30", backend.gotCursor)
}

func TestRankProxy_BackendStatusPreserved(t *testing.T) {
	backend := &fakeRankBackend{status: http.StatusTooManyRequests, body: `{"error":"slow down"}`}
	router := newProxyRouter(backend)

	w := get(router, "/rankProxy?uid=user-1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRankProxy_UnreachableBackendReturns502(t *testing.T) {
	backend := &fakeRankBackend{err: errors.New("dial tcp: refused")}
	router := newProxyRouter(backend)

	w := get(router, "/rankProxy?uid=user-1")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
