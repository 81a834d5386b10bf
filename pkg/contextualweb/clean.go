package contextualweb

import "regexp"

var (
	escapedNewlines = regexp.MustCompile(`(?:\\n)+`)
	whitespace      = regexp.MustCompile(`\s+`)
	boldTags        = regexp.MustCompile(`</*b>`)
)

// CleanText 在 JSON 解析前清理原始响应文本：
// 连续的 "\n" 转义替换为一个空格，空白合并为一个空格，去掉 <b> 与 </b> 标签。
// 去标签后再合并一次空白，保证结果中不出现连续空白。
func CleanText(raw string) string {
	s := escapedNewlines.ReplaceAllString(raw, " ")
	s = whitespace.ReplaceAllString(s, " ")
	s = boldTags.ReplaceAllString(s, "")
	return whitespace.ReplaceAllString(s, " ")
}
