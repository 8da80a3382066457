package parser

import "testing"

func TestExtractYearMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in          string
		year, month int
		found       bool
	}{
		{"2025年3月订单明细", 2025, 3, true},
		{"美团_202511", 2025, 11, true},
		{"2024-07 饿了么", 2024, 7, true},
		{"订单明细", 0, 0, false},
	}
	for _, tt := range tests {
		y, m, found := ExtractYearMonth(tt.in)
		if found != tt.found || y != tt.year || m != tt.month {
			t.Fatalf("%s: got %d-%02d %v, want %d-%02d %v", tt.in, y, m, found, tt.year, tt.month, tt.found)
		}
	}
}

func TestNormalizeColumnName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" 配送费（元） ":  "配送费",
		"平台 服务费\n": "平台服务费",
		"商品实收(元)":   "商品实收",
		"\ufeff订单编号": "订单编号",
	}
	for in, want := range tests {
		if got := NormalizeColumnName(in); got != want {
			t.Fatalf("NormalizeColumnName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234.50", 1234.5, true},
		{"¥12", 12, true},
		{"8元", 8, true},
		{"(3.5)", -3.5, true},
		{"-2", -2, true},
		{"-", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseAmount(%q) = %v %v, want %v %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseOrderDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-01 12:30:00", "2025-03-01", true},
		{"2025/3/2", "2025-03-02", true},
		{"2025年3月4日", "2025-03-04", true},
		{"45717", "2025-03-01", true},
		{"明天", "明天", false},
	}
	for _, tt := range tests {
		got, ok := ParseOrderDate(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseOrderDate(%q) = %q %v, want %q %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
