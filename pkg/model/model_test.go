package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestResult_Merge_LastPageWins(t *testing.T) {
	r := &Result{
		Provider: "newsapi",
		Pages: []Page{
			{Number: 1, Status: "ok", TotalResults: 10, Articles: []Article{
				{URL: "https://a.example/1", Title: "one"},
				{URL: "https://a.example/2", Title: "two"},
			}},
			{Number: 2, Status: "partial", TotalResults: 20, Articles: []Article{
				{URL: "https://a.example/2", Title: "two again"},
				{URL: "https://a.example/3", Title: "three"},
			}},
		},
	}

	m := r.Merge()
	if m.Status != "partial" {
		t.Errorf("Status = %q, want partial", m.Status)
	}
	if m.TotalResults != 20 {
		t.Errorf("TotalResults = %d, want 20", m.TotalResults)
	}
	if len(m.Articles) != 3 {
		t.Fatalf("len(Articles) = %d, want 3", len(m.Articles))
	}
	if m.Articles[1].Title != "two" {
		t.Errorf("duplicate URL kept %q, want first occurrence", m.Articles[1].Title)
	}
	if r.Count() != 4 {
		t.Errorf("Count() = %d, want 4", r.Count())
	}
}

func TestResult_Merge_Empty(t *testing.T) {
	r := &Result{Provider: "contextualweb"}
	m := r.Merge()
	if m.Articles == nil {
		t.Fatal("Articles should be an empty slice, not nil")
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got := string(data); got != `{"provider":"contextualweb","totalResults":0,"articles":[]}` {
		t.Errorf("Marshal = %s", got)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeTopHeadlines, false},
		{"top", ModeTopHeadlines, false},
		{"Everything", ModeEverything, false},
		{"everywhere", ModeEverything, false},
		{"rapid", ModeSecondary, false},
		{"secondary", ModeSecondary, false},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWindow_MarshalJSON(t *testing.T) {
	w := Window{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got := string(data); got != `{"from":"2024-01-01","to":"2024-01-02"}` {
		t.Errorf("Marshal = %s", got)
	}

	data, _ = json.Marshal(Window{})
	if string(data) != "null" {
		t.Errorf("zero window = %s, want null", data)
	}
}

func TestSearchRequest_Pages(t *testing.T) {
	if got := (SearchRequest{}).Pages(); got != DefaultPageCount {
		t.Errorf("Pages() = %d, want %d", got, DefaultPageCount)
	}
	if got := (SearchRequest{PageCount: 3}).Pages(); got != 3 {
		t.Errorf("Pages() = %d, want 3", got)
	}
}
