package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer(t *testing.T) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/articles", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort_by") == "views" {
			w.Write([]byte(`{"articles":[{"id":2,"title":"Hot","author":"bob","tag":"Python","views":9,"likes":1},{"id":1,"title":"Cold","author":"alice","tag":"Flask","views":3,"likes":4}]}`))
			return
		}
		w.Write([]byte(`{"articles":[{"id":1,"title":"Cold","author":"alice","tag":"Flask","views":3,"likes":4},{"id":2,"title":"Hot","author":"bob","tag":"Python","views":9,"likes":1}]}`))
	})
	mux.HandleFunc("/articles/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":1,"title":"Cold","author":"alice","tag":"Flask","views":3,"likes":4,"comments_count":2}`))
	})
	mux.HandleFunc("/articles/7", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"article not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"users":[{"id":1,"username":"alice","is_admin":true,"articles_count":2}]}`))
	})
	mux.HandleFunc("/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"Python","articles_count":3},{"name":"Tutorial","articles_count":0}]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &Client{Addr: srv.URL}
}

func TestArticles(t *testing.T) {
	c := testServer(t)

	articles, err := c.Articles("")
	if err != nil {
		t.Fatalf("Articles: %v", err)
	}
	if len(articles) != 2 || articles[0].Title != "Cold" {
		t.Fatalf("articles = %+v", articles)
	}

	byViews, err := c.Articles("views")
	if err != nil {
		t.Fatalf("Articles(views): %v", err)
	}
	if byViews[0].ID != 2 || byViews[0].Views != 9 {
		t.Errorf("sorted articles = %+v", byViews)
	}
}

func TestArticle(t *testing.T) {
	c := testServer(t)

	detail, err := c.Article(1)
	if err != nil {
		t.Fatalf("Article: %v", err)
	}
	if detail.Author != "alice" || detail.CommentsCount != 2 {
		t.Errorf("detail = %+v", detail)
	}
}

func TestArticleNotFound(t *testing.T) {
	c := testServer(t)

	_, err := c.Article(7)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", statusErr.Code)
	}
}

func TestUsers(t *testing.T) {
	c := testServer(t)

	users, err := c.Users("articles")
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" || users[0].ArticlesCount != 2 {
		t.Errorf("users = %+v", users)
	}
}

func TestTags(t *testing.T) {
	c := testServer(t)

	tags, err := c.Tags()
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 2 || tags[0].Name != "Python" || tags[0].ArticlesCount != 3 {
		t.Errorf("tags = %+v", tags)
	}
}

func TestServerDown(t *testing.T) {
	c := &Client{Addr: "http://127.0.0.1:1"}
	if _, err := c.Tags(); err == nil {
		t.Fatal("expected connection error")
	}
}
