package engine

import (
	"time"

	"github.com/iWorld-y/news_gather/pkg/model"
)

// SplitDays 将 [start, end) 拆分为按天的半开窗口 [d, d+1)，只包含完整的天
func SplitDays(start, end time.Time) []model.Window {
	var windows []model.Window
	for d := start; ; {
		next := d.AddDate(0, 0, 1)
		if next.After(end) {
			break
		}
		windows = append(windows, model.Window{From: d, To: next})
		d = next
	}
	return windows
}
