package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"o2oprofit/internal/model"
)

// ParseFile 直接解析导出文件（不入库），返回全部订单明细行与各 Sheet 结果
//
// 非订单明细 Sheet 记为 skipped；没有任何订单明细时返回错误。
func (p *OrderParser) ParseFile(path string) ([]*model.OrderLine, []ParseResult, error) {
	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("打开文件失败: %w", err)
		}
		defer f.Close()

		lines, result, err := p.ParseCSV(f, name)
		if err != nil {
			return nil, []ParseResult{result}, err
		}
		return lines, []ParseResult{result}, nil
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("打开文件失败: %w", err)
	}
	defer file.Close()

	var (
		all     []*model.OrderLine
		results []ParseResult
	)
	for _, sheet := range file.GetSheetList() {
		lines, result, err := p.ParseSheet(file, sheet)
		if err != nil && !errors.Is(err, ErrNotOrderSheet) && result.Status != "skipped" {
			result.Errors = append(result.Errors, err.Error())
		}
		if result.Channel == "" {
			result.Channel = RecognizeChannel(name)
		}
		for _, l := range lines {
			if l.Channel == "" {
				l.Channel = result.Channel
			}
		}
		results = append(results, result)
		all = append(all, lines...)
	}

	if len(all) == 0 {
		return nil, results, fmt.Errorf("%s 中没有可识别的订单明细", name)
	}
	return all, results, nil
}
