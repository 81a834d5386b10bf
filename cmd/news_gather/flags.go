package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iWorld-y/news_gather/pkg/model"
	"github.com/iWorld-y/news_gather/pkg/sink"
)

// dateFlag 接受 YYYY-MM-DD 或 Y,M,D 形式的日期
type dateFlag struct {
	t *time.Time
}

func (d *dateFlag) String() string {
	if d == nil || d.t == nil {
		return ""
	}
	return d.t.Format(time.DateOnly)
}

func (d *dateFlag) Set(s string) error {
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.t = &t
	return nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or Y,M,D", s)
	}
	var ymd [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		ymd[i] = n
	}
	if ymd[1] < 1 || ymd[1] > 12 || ymd[2] < 1 || ymd[2] > 31 {
		return time.Time{}, fmt.Errorf("invalid date %q: month or day out of range", s)
	}
	t := time.Date(ymd[0], time.Month(ymd[1]), ymd[2], 0, 0, 0, 0, time.Local)
	if t.Day() != ymd[2] {
		return time.Time{}, fmt.Errorf("invalid date %q: no such day", s)
	}
	return t, nil
}

// options 命令行参数
type options struct {
	query      string
	start      dateFlag
	end        dateFlag
	everywhere bool
	secondary  bool
	pages      int

	sinks sink.Flags

	verbose    bool
	configFile string
	newsKey    string
	rapidKey   string
	dumpCorpus bool
}

// searchRequest 由参数构造检索请求。只给出起始日期时结束日期取当前时间；
// 头条检索不支持日期，给出日期时改用全文检索
func (o *options) searchRequest(now time.Time) (model.SearchRequest, error) {
	req := model.SearchRequest{
		Query:     o.query,
		Mode:      model.ModeTopHeadlines,
		Start:     o.start.t,
		End:       o.end.t,
		PageCount: o.pages,
	}

	switch {
	case o.secondary:
		req.Mode = model.ModeSecondary
	case o.everywhere || req.Start != nil:
		req.Mode = model.ModeEverything
	}

	if req.Start != nil && req.End == nil {
		req.End = &now
	}
	if req.HasRange() && !req.Start.Before(*req.End) {
		return req, fmt.Errorf("start date %s is not before end date %s",
			req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly))
	}

	return req, nil
}
