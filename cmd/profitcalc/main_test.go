package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"o2oprofit/internal/calculator"
)

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "美团订单明细.csv")
	data := "订单号,门店,一级分类,商品名称,商品实收,商品利润,配送费,平台服务费,平台佣金\n" +
		"A1,一号店,零食,薯片,40,10,5,8,1\n" +
		"A1,一号店,饮料,可乐,60,15,5,8,1\n" +
		"B1,二号店,零食,饼干,50,20,3,0,4\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestRunStrict(t *testing.T) {
	path := writeCSV(t)
	out := filepath.Join(t.TempDir(), "report.xlsx")

	var buf bytes.Buffer
	if err := run([]string{"-file", path, "-mode", "strict", "-out", out}, &buf); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := buf.String()
	for _, want := range []string{"fee=strict", "订单: 1", "剔除: 1", "实际利润: 12.00", "报表已写入"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("report not written: %v", err)
	}
}

func TestRunFallbackParallel(t *testing.T) {
	var buf bytes.Buffer
	if err := run([]string{"-file", writeCSV(t), "-mode", "fallback", "-workers", "4", "-exclude", "-"}, &buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), "兜底: 1") || !strings.Contains(buf.String(), "实际利润: 25.00") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestRunConfigurationError(t *testing.T) {
	var buf bytes.Buffer
	err := run([]string{"-file", writeCSV(t), "-schema", "v9"}, &buf)
	var cfgErr *calculator.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("no partial output expected, got:\n%s", buf.String())
	}
}

func TestRunRequiresFile(t *testing.T) {
	if err := run(nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error without -file")
	}
}
