package contextualweb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iWorld-y/news_gather/pkg/config"
	"github.com/iWorld-y/news_gather/pkg/model"
	"github.com/iWorld-y/news_gather/pkg/search"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"escaped newlines", `a\n\n\nb`, "a b"},
		{"whitespace runs", "a  \t\r\n b", "a b"},
		{"bold tags", "<b>Tacos</b> are <b>great</b>", "Tacos are great"},
		{"tag between spaces", "a <b> b", "a b"},
		{"mixed", `{"body":"<b>x</b>\n\n  y"}`, `{"body":"x y"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanText_NoTagsOrWhitespaceRuns(t *testing.T) {
	inputs := []string{
		"  <b> </b>  <b>a</b>\t\t</b>b<b>  ",
		`\n<b>\n</b>\n`,
		"plain",
		"",
	}
	tag := regexp.MustCompile(`</*b>`)
	run := regexp.MustCompile(`\s{2,}`)

	for _, in := range inputs {
		got := CleanText(in)
		if tag.MatchString(got) {
			t.Errorf("CleanText(%q) = %q still contains bold tags", in, got)
		}
		if run.MatchString(got) {
			t.Errorf("CleanText(%q) = %q contains a whitespace run", in, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	body := "Full body"
	resp := &Response{Value: []RawValue{
		{
			Title:         "Tacos",
			URL:           "https://a.example/1",
			Body:          &body,
			DatePublished: "2024-01-01T00:00:00",
			Provider:      &RawProvider{Name: "Example Times"},
			Image:         &RawImage{URL: "https://a.example/1.png"},
		},
		{
			Title:         "No image",
			URL:           "https://a.example/2",
			DatePublished: "2024-01-01T00:00:00",
			Provider:      &RawProvider{Name: "Other"},
		},
	}}

	articles, err := Normalize("tacos", resp)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("len = %d, want 2", len(articles))
	}

	a := articles[0]
	if a.Source != "Example Times" || a.Query != "tacos" {
		t.Errorf("unexpected article %+v", a)
	}
	if a.Author != nil {
		t.Error("Author should always be nil")
	}
	if a.ImageURL == nil || *a.ImageURL != "https://a.example/1.png" {
		t.Errorf("ImageURL = %v", a.ImageURL)
	}
	if a.Content == nil || *a.Content != "Full body" {
		t.Errorf("Content = %v", a.Content)
	}
	if articles[1].ImageURL != nil {
		t.Error("missing image should be nil")
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		resp    *Response
		wantErr error
	}{
		{"missing value", &Response{}, ErrMissingValue},
		{"missing provider", &Response{Value: []RawValue{{DatePublished: "2024-01-01"}}}, ErrMissingProvider},
		{"missing date", &Response{Value: []RawValue{{Provider: &RawProvider{Name: "P"}}}}, ErrMissingDatePublished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize("q", tt.resp)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

type recorder struct {
	mu       sync.Mutex
	requests []*http.Request
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default().RapidAPI
	cfg.APIKey = "rapid-key"
	cfg.BaseURL = srv.URL
	return NewClient(cfg, WithHTTPClient(srv.Client()))
}

func TestClient_Search(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		page := r.URL.Query().Get("pageNumber")
		fmt.Fprintf(w, `{"_type":"news","totalCount":90,"value":[
  {"title":"<b>Tacos</b>\n\n page %s","url":"https://a.example/%s","description":"d","body":"b",
   "datePublished":"2024-01-01T00:00:00","provider":{"name":"P"},"image":{"url":"https://a.example/i.png"}}]}`, page, page)
	})

	w := model.Window{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	res, err := c.Search(context.Background(), &search.Request{Query: "tacos", Window: w, PageCount: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(rec.requests) != PageCount {
		t.Fatalf("requests = %d, want %d", len(rec.requests), PageCount)
	}
	for i, r := range rec.requests {
		if r.URL.Path != "/api/Search/NewsSearchAPI" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-rapidapi-key") != "rapid-key" {
			t.Error("missing x-rapidapi-key header")
		}
		if r.Header.Get("x-rapidapi-host") != "contextualwebsearch-websearch-v1.p.rapidapi.com" {
			t.Errorf("x-rapidapi-host = %q", r.Header.Get("x-rapidapi-host"))
		}
		q := r.URL.Query()
		if q.Get("pageNumber") != strconv.Itoa(i+1) {
			t.Errorf("pageNumber = %s", q.Get("pageNumber"))
		}
		if q.Get("pageSize") != "10" || q.Get("autoCorrect") != "false" || q.Get("safeSearch") != "false" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("fromPublishedDate") != "2024-01-01" || q.Get("toPublishedDate") != "2024-01-02" {
			t.Errorf("date bounds = %s/%s", q.Get("fromPublishedDate"), q.Get("toPublishedDate"))
		}
	}

	articles := res.Articles()
	if len(articles) != PageCount {
		t.Fatalf("articles = %d", len(articles))
	}
	if articles[0].Title != "Tacos page 1" {
		t.Errorf("Title = %q, want cleaned text", articles[0].Title)
	}
	if articles[0].Source != "P" {
		t.Errorf("Source = %q", articles[0].Source)
	}
}

func TestClient_Search_UnboundedOmitsDates(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		fmt.Fprint(w, `{"value":[]}`)
	})

	if _, err := c.Search(context.Background(), &search.Request{Query: "q"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	q := rec.requests[0].URL.Query()
	if q.Has("fromPublishedDate") || q.Has("toPublishedDate") {
		t.Errorf("unexpected date params: %v", q)
	}
}

func TestClient_Search_Errors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message":"You are not subscribed to this API."}`)
		})
		_, err := c.Search(context.Background(), &search.Request{Query: "q"})
		var terr *search.TransportError
		if !errors.As(err, &terr) || terr.StatusCode != http.StatusForbidden {
			t.Fatalf("error = %v, want TransportError 403", err)
		}
		if !strings.Contains(err.Error(), "not subscribed") {
			t.Errorf("error should carry the provider message: %v", err)
		}
	})

	t.Run("missing value", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"_type":"news"}`)
		})
		_, err := c.Search(context.Background(), &search.Request{Query: "q"})
		var nerr *search.NormalizeError
		if !errors.As(err, &nerr) || nerr.Page != 1 {
			t.Fatalf("error = %v, want NormalizeError on page 1", err)
		}
		if !errors.Is(err, ErrMissingValue) {
			t.Errorf("error = %v, want ErrMissingValue", err)
		}
	})
}

func TestClient_Search_OpenEndedWindow(t *testing.T) {
	tests := []struct {
		name     string
		window   model.Window
		wantFrom string
		wantTo   string
	}{
		{"end only", model.Window{To: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)}, "", "2024-01-04"},
		{"start only", model.Window{From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}, "2024-01-01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				rec.add(r)
				fmt.Fprint(w, `{"value":[]}`)
			})

			if _, err := c.Search(context.Background(), &search.Request{Query: "q", Window: tt.window}); err != nil {
				t.Fatalf("Search: %v", err)
			}
			q := rec.requests[0].URL.Query()
			if q.Has("fromPublishedDate") != (tt.wantFrom != "") || q.Get("fromPublishedDate") != tt.wantFrom {
				t.Errorf("fromPublishedDate = %q, want %q", q.Get("fromPublishedDate"), tt.wantFrom)
			}
			if q.Has("toPublishedDate") != (tt.wantTo != "") || q.Get("toPublishedDate") != tt.wantTo {
				t.Errorf("toPublishedDate = %q, want %q", q.Get("toPublishedDate"), tt.wantTo)
			}
		})
	}
}
