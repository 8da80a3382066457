package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	yearMonthRe  = regexp.MustCompile(`(\d{4})年0?(\d{1,2})月`)
	yearMonthRe2 = regexp.MustCompile(`(\d{4})[-_.]?(0[1-9]|1[0-2])`)
	spaceRe      = regexp.MustCompile(`\s+`)
	unitSuffixRe = regexp.MustCompile(`[（(](元|¥|￥|RMB)[)）]$`)
)

// ExtractYearMonth 从字符串中提取年月信息
// 支持格式: "2025年3月订单明细" / "美团_202503" / "2025-03"
func ExtractYearMonth(text string) (year, month int, found bool) {
	if matches := yearMonthRe.FindStringSubmatch(text); len(matches) >= 3 {
		year, _ = strconv.Atoi(matches[1])
		month, _ = strconv.Atoi(matches[2])
		if month >= 1 && month <= 12 {
			return year, month, true
		}
	}
	if matches := yearMonthRe2.FindStringSubmatch(text); len(matches) >= 3 {
		year, _ = strconv.Atoi(matches[1])
		month, _ = strconv.Atoi(matches[2])
		return year, month, true
	}
	return 0, 0, false
}

// NormalizeColumnName 规范化列名：去除空白与金额单位后缀
func NormalizeColumnName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "\ufeff")
	name = spaceRe.ReplaceAllString(name, "")
	name = unitSuffixRe.ReplaceAllString(name, "")
	return name
}

// ContainsAny 检查字符串是否包含任意一个关键词
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// MatchPattern 使用正则匹配
func MatchPattern(text, pattern string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// ParseAmount 解析金额单元格
//
// 去除千分位、货币符号与单位；"(12.5)" 记为负数。空值与 "-" 视为缺失。
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "--" {
		return 0, false
	}

	negative := false
	if (strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")) ||
		(strings.HasPrefix(s, "（") && strings.HasSuffix(s, "）")) {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
		s = strings.TrimSuffix(strings.TrimPrefix(s, "（"), "）")
	}

	s = strings.NewReplacer(",", "", "，", "", "¥", "", "￥", "", "元", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"2006.01.02",
	"2006年1月2日",
	"01-02-06",
	"1/2/06 15:04",
	"1/2/06",
}

// ParseOrderDate 解析下单日期，统一为 2006-01-02
//
// 兼容文本日期与 Excel 日期序列号。无法解析时原样返回，ok=false。
func ParseOrderDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 1 && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return s, false
}
