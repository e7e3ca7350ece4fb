package canny_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"pledgekit-backend/internal/canny"
)

func postsPage(ids []string, hasMore bool) map[string]any {
	posts := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		posts = append(posts, map[string]any{"id": id, "title": "Post " + id})
	}
	return map[string]any{"posts": posts, "hasMore": hasMore}
}

func TestListPosts(t *testing.T) {
	ctx := context.Background()

	t.Run("FollowsCursorToCompletion", func(t *testing.T) {
		pages := map[string]map[string]any{
			"0": postsPage([]string{"p1", "p2"}, true),
			"2": postsPage([]string{"p3"}, false),
		}
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			assert.Equal(t, "/posts/list", r.URL.Path)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "key-1", r.PostForm.Get("apiKey"))
			page, ok := pages[r.PostForm.Get("skip")]
			if !ok {
				t.Errorf("unexpected skip offset %q", r.PostForm.Get("skip"))
				page = postsPage(nil, false)
			}
			json.NewEncoder(w).Encode(page)
		}))
		defer srv.Close()

		client := canny.NewClient(srv.URL)
		posts, err := client.ListPosts(ctx, "key-1", "b1")
		assert.NoError(t, err)
		assert.Len(t, posts, 3)
		assert.Equal(t, "p3", posts[2].ID)
		assert.Equal(t, 2, calls)
	})

	t.Run("EmptyPageWithHasMoreTerminates", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			assert.NoError(t, r.ParseForm())
			if r.PostForm.Get("skip") == "0" {
				json.NewEncoder(w).Encode(postsPage([]string{"p1"}, true))
				return
			}
			// A buggy upstream: nothing left but hasMore still set. The
			// skip offset would never advance past here.
			json.NewEncoder(w).Encode(postsPage(nil, true))
		}))
		defer srv.Close()

		client := canny.NewClient(srv.URL)
		posts, err := client.ListPosts(ctx, "key-1", "b1")
		assert.NoError(t, err)
		assert.Len(t, posts, 1)
		assert.Equal(t, 2, calls)
	})

	t.Run("UpstreamErrorIsSurfaced", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		client := canny.NewClient(srv.URL)
		_, err := client.ListPosts(ctx, "bad-key", "b1")
		assert.Error(t, err)
	})
}

func TestListBoards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/boards/list", r.URL.Path)
		fmt.Fprint(w, `{"boards":[{"id":"b1","name":"Feature Requests","postCount":12}]}`)
	}))
	defer srv.Close()

	client := canny.NewClient(srv.URL)
	boards, err := client.ListBoards(context.Background(), "key-1")
	assert.NoError(t, err)
	assert.Len(t, boards, 1)
	assert.Equal(t, int32(12), boards[0].PostCount)
}
