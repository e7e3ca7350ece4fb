package canny

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pledgekit-backend/internal/logger"
)

// MaxPageSize is the largest page the board API accepts on list calls.
const MaxPageSize = 100

// Client pulls boards and posts from the external feature-request
// board. Authentication is a per-company API key passed on each call.
type Client interface {
	ListBoards(ctx context.Context, apiKey string) ([]Board, error)
	// ListPosts follows the has-more/skip cursor to completion and
	// returns every post on the board.
	ListPosts(ctx context.Context, apiKey, boardID string) ([]Post, error)
}

type Board struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PostCount int32  `json:"postCount"`
}

type Post struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Details string `json:"details"`
	Status  string `json:"status"`
	Score   int32  `json:"score"`
	Board   struct {
		ID string `json:"id"`
	} `json:"board"`
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) Client {
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type boardsResponse struct {
	Boards []Board `json:"boards"`
}

type postsResponse struct {
	Posts   []Post `json:"posts"`
	HasMore bool   `json:"hasMore"`
}

func (c *httpClient) ListBoards(ctx context.Context, apiKey string) ([]Board, error) {
	var br boardsResponse
	if err := c.post(ctx, "/boards/list", url.Values{"apiKey": {apiKey}}, &br); err != nil {
		return nil, err
	}
	return br.Boards, nil
}

func (c *httpClient) ListPosts(ctx context.Context, apiKey, boardID string) ([]Post, error) {
	var all []Post
	skip := 0
	for {
		form := url.Values{
			"apiKey":  {apiKey},
			"boardID": {boardID},
			"limit":   {strconv.Itoa(MaxPageSize)},
			"skip":    {strconv.Itoa(skip)},
		}
		var pr postsResponse
		if err := c.post(ctx, "/posts/list", form, &pr); err != nil {
			return nil, err
		}
		all = append(all, pr.Posts...)
		if !pr.HasMore {
			return all, nil
		}
		// An empty page with hasMore set would loop forever on the same
		// skip offset; treat it as the end of the board.
		if len(pr.Posts) == 0 {
			return all, nil
		}
		skip += len(pr.Posts)
	}
}

func (c *httpClient) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logger.ExternalServiceCall("canny", path)
	resp, err := c.client.Do(req)
	if err != nil {
		logger.ExternalServiceResult("canny", path, err)
		return fmt.Errorf("canny request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("canny error on %s (status %d): %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
		logger.ExternalServiceResult("canny", path, err)
		return err
	}
	logger.ExternalServiceResult("canny", path, nil)

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode canny response for %s: %w", path, err)
	}
	return nil
}
