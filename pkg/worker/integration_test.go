package worker

import (
	"context"
	"net/http"
	"testing"

	"github.com/Sternrassler/offline-cache/internal/testutil"
	"github.com/Sternrassler/offline-cache/pkg/cache"
	"github.com/Sternrassler/offline-cache/pkg/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_AgainstOrigin(t *testing.T) {
	ctx := context.Background()
	origin := testutil.NewMockOrigin()
	defer origin.Close()

	cfg := DefaultConfig()
	cfg.Origin = origin.URL()
	cfg.Manifest.Dynamic = []string{origin.URL() + "/cdn/"}
	for _, entry := range cfg.Manifest.Shell {
		origin.SetResponse(entry, testutil.NewHTMLResponse("<html>"+entry+"</html>"))
	}
	origin.SetResponse("/cdn/bootstrap.min.css", testutil.MockResponse{
		Body:    "body{margin:0}",
		Headers: map[string]string{"Content-Type": "text/css"},
	})

	storage := cache.NewMemory()
	w, err := New(cfg, storage, fetch.New(fetch.DefaultConfig()))
	require.NoError(t, err)
	require.NoError(t, w.Install(ctx))
	require.NoError(t, w.Activate(ctx, nil))
	assert.Equal(t, len(cfg.Manifest.Shell), origin.TotalRequests())
	origin.Reset()

	resp, err := w.HandleFetch(ctx, get(t, origin.URL()+"/calendar.html", htmlAccept))
	require.NoError(t, err)
	assert.Equal(t, "<html>/calendar.html</html>", readBody(t, resp))
	assert.Equal(t, 0, origin.TotalRequests())

	for i := 0; i < 2; i++ {
		resp, err := w.HandleFetch(ctx, get(t, origin.URL()+"/cdn/bootstrap.min.css", "text/css"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/css", resp.Header.Get("Content-Type"))
		assert.Equal(t, "body{margin:0}", readBody(t, resp))
		waitWrites(t, w)
	}
	assert.Equal(t, 1, origin.RequestCount("/cdn/bootstrap.min.css"))

	origin.SetResponse("/cdn/broken.js", testutil.NewServerErrorResponse())
	resp, err = w.HandleFetch(ctx, get(t, origin.URL()+"/cdn/broken.js", "*/*"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()
	waitWrites(t, w)
	assert.Equal(t, 1, storage.Len(cfg.DynamicCache))

	// Origin goes away: cached assets keep working, navigations fall back.
	origin.Close()

	resp, err = w.HandleFetch(ctx, get(t, cfg.Origin+"/cdn/bootstrap.min.css", "text/css"))
	require.NoError(t, err)
	assert.Equal(t, "body{margin:0}", readBody(t, resp))

	resp, err = w.HandleFetch(ctx, get(t, cfg.Origin+"/cdn/calendar.css", htmlAccept))
	require.NoError(t, err)
	assert.Equal(t, "<html>/offline.html</html>", readBody(t, resp))

	_, err = w.HandleFetch(ctx, get(t, cfg.Origin+"/cdn/calendar.css", "text/css"))
	assert.ErrorIs(t, err, ErrNoResponse)
}
