/*
 * @module service/sync_engine/dates
 * @description 同步日期工具：本地时区的今天、N 天前、日期加减与解析
 * @architecture 工具层
 * @documentReference DESIGN.md
 * @rules 日期统一为 YYYY-MM-DD；"今天"取本地时区，日期运算在 UTC 上进行避免夏令时偏移
 * @dependencies agent-datahub/service/meta
 * @refs service/sync_engine/strategies.go
 */

package sync_engine

import (
	"agent-datahub/service/meta"
	"fmt"
	"time"
)

// Clock 可注入的时钟
type Clock func() time.Time

// Today 返回时钟所在时区的当天日期
func (c Clock) Today() string {
	return c.now().Format(meta.DateLayout)
}

// DaysAgo 返回 n 天前的日期
func (c Clock) DaysAgo(n int) string {
	now := c.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -n).Format(meta.DateLayout)
}

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(meta.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式错误 %q: %w", s, err)
	}
	return t, nil
}

// AddDays 日期加减天数
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(meta.DateLayout), nil
}

// formatDate 格式化为 YYYY-MM-DD
func formatDate(t time.Time) string {
	return t.Format(meta.DateLayout)
}
