// Package client is a thin consumer of the read-only query API, used by the
// Telegram bot and anything else that needs article data without a database
// connection.
package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the /api endpoints of a running instance.
type Client struct {
	http.Client
	Addr string
}

// StatusError is returned for any non-200 response; it carries the raw
// status code for the caller to relay.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned status %d", e.Code)
}

// ArticleSummary is one entry of the articles listing.
type ArticleSummary struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	Tag            string    `json:"tag"`
	Views          int       `json:"views"`
	Likes          int       `json:"likes"`
	CreatedAt      time.Time `json:"created_at"`
	RegisteredOnly bool      `json:"registered_only"`
}

// ArticleDetail is the full article view, including the comment count.
type ArticleDetail struct {
	ArticleSummary
	CommentsCount int64 `json:"comments_count"`
}

// UserSummary is one entry of the users listing.
type UserSummary struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	IsAdmin       bool   `json:"is_admin"`
	ArticlesCount int64  `json:"articles_count"`
}

// TagCount is one entry of the tags listing.
type TagCount struct {
	Name          string `json:"name"`
	ArticlesCount int64  `json:"articles_count"`
}

func (c *Client) getJSON(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.Addr+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Articles lists all articles. sortBy may be empty for the default order.
func (c *Client) Articles(sortBy string) ([]ArticleSummary, error) {
	path := "/articles"
	if sortBy != "" {
		path += "?sort_by=" + sortBy
	}
	var payload struct {
		Articles []ArticleSummary `json:"articles"`
	}
	if err := c.getJSON(path, &payload); err != nil {
		return nil, err
	}
	return payload.Articles, nil
}

// Article fetches one article by id.
func (c *Client) Article(id int) (*ArticleDetail, error) {
	var detail ArticleDetail
	if err := c.getJSON(fmt.Sprintf("/articles/%d", id), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Users lists all users. sortBy may be empty for the default order.
func (c *Client) Users(sortBy string) ([]UserSummary, error) {
	path := "/users"
	if sortBy != "" {
		path += "?sort_by=" + sortBy
	}
	var payload struct {
		Users []UserSummary `json:"users"`
	}
	if err := c.getJSON(path, &payload); err != nil {
		return nil, err
	}
	return payload.Users, nil
}

// Tags lists all tags with article counts, most popular first.
func (c *Client) Tags() ([]TagCount, error) {
	var tags []TagCount
	if err := c.getJSON("/tags", &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
