package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"o2oprofit/internal/model"
)

// ErrNotOrderSheet 非订单明细表
var ErrNotOrderSheet = errors.New("not an order detail sheet")

// OrderParser 订单明细解析器（Excel / CSV）
type OrderParser struct {
	recognizer *SheetRecognizer
	mapper     *FieldMapper
}

// NewOrderParser 创建订单明细解析器
func NewOrderParser() *OrderParser {
	return &OrderParser{
		recognizer: NewSheetRecognizer(),
		mapper:     NewFieldMapper(),
	}
}

// Recognize 识别 Sheet 类型
func (p *OrderParser) Recognize(sheetName string, headers []string) SheetRecognitionResult {
	return p.recognizer.Recognize(sheetName, headers)
}

// ParseSheet 解析工作簿中的一个 Sheet
func (p *OrderParser) ParseSheet(file *excelize.File, sheetName string) ([]*model.OrderLine, ParseResult, error) {
	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, ParseResult{SheetName: sheetName, Status: "error"}, fmt.Errorf("failed to read sheet: %w", err)
	}
	return p.ParseRows(sheetName, rows)
}

// ParseCSV 解析 CSV 导出；name 用于识别平台（通常为文件名）
func (p *OrderParser) ParseCSV(r io.Reader, name string) ([]*model.OrderLine, ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, ParseResult{SheetName: name, Status: "error"}, fmt.Errorf("failed to read csv: %w", err)
	}
	return p.ParseRows(name, rows)
}

// ParseRows 解析首行为表头的二维数据
func (p *OrderParser) ParseRows(sheetName string, rows [][]string) ([]*model.OrderLine, ParseResult, error) {
	start := time.Now()
	result := ParseResult{SheetName: sheetName, SheetType: SheetTypeUnknown}

	if len(rows) < 2 {
		result.Status = "skipped"
		return nil, result, fmt.Errorf("sheet has no data rows")
	}

	headers := rows[0]
	recog := p.recognizer.Recognize(sheetName, headers)
	result.SheetType = recog.SheetType
	result.Channel = recog.Channel
	if recog.SheetType != SheetTypeOrderDetail {
		result.Status = "skipped"
		return nil, result, ErrNotOrderSheet
	}

	mappings, unmapped := p.mapper.Map(headers)
	result.Mappings = sortedMappings(mappings)
	result.UnmappedColumns = unmapped
	if !HasField(mappings, model.FieldOrderID) {
		result.Status = "error"
		return nil, result, fmt.Errorf("missing order id column")
	}

	deriveProfit := !HasField(mappings, model.FieldItemProfit) &&
		HasField(mappings, model.FieldItemRevenue) &&
		HasField(mappings, model.FieldItemCost)
	result.DerivedProfit = deriveProfit

	lines := make([]*model.OrderLine, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		line, rowErrs := p.parseRow(rows[rowIdx], mappings, sheetName, rowIdx+1)
		if line == nil {
			result.SkippedRows++
			continue
		}
		if len(rowErrs) > 0 {
			result.ErrorRows++
			for _, e := range rowErrs {
				if len(result.Errors) < maxRowErrors {
					result.Errors = append(result.Errors, e)
				}
			}
		}
		if line.Channel == "" {
			line.Channel = recog.Channel
		}
		if deriveProfit {
			deriveItemProfit(line)
		}
		lines = append(lines, line)
	}

	result.ImportedRows = len(lines)
	result.Status = "imported"
	result.Duration = time.Since(start)
	return lines, result, nil
}

// parseRow 解析单行；缺少订单号返回 nil
func (p *OrderParser) parseRow(row []string, mappings map[int]FieldMapping, sheetName string, rowNo int) (*model.OrderLine, []string) {
	line := &model.OrderLine{
		Values:      make(map[string]float64),
		RowNo:       rowNo,
		SourceSheet: sheetName,
	}
	var errs []string

	for colIdx, mapping := range mappings {
		if colIdx >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[colIdx])
		if value == "" {
			continue
		}

		switch mapping.Field {
		case model.FieldOrderID:
			line.OrderID = value
		case model.FieldChannel:
			if ch := RecognizeChannel(value); ch != "" {
				line.Channel = ch
			} else {
				line.Channel = value
			}
		case model.FieldStoreName:
			line.StoreName = value
		case model.FieldOrderDate:
			date, ok := ParseOrderDate(value)
			if !ok {
				errs = append(errs, fmt.Sprintf("第%d行 %s 日期无法解析: %q", rowNo, mapping.ColumnName, value))
				continue
			}
			line.OrderDate = date
		case model.FieldCategory:
			line.Category = value
		case model.FieldProductName:
			line.ProductName = value
		default:
			v, ok := ParseAmount(value)
			if !ok {
				errs = append(errs, fmt.Sprintf("第%d行 %s 无法解析: %q", rowNo, mapping.ColumnName, value))
				continue
			}
			line.Values[mapping.Field] = v
		}
	}

	if line.OrderID == "" {
		return nil, nil
	}
	return line, errs
}

// deriveItemProfit 商品利润 = 商品实收 - 商品成本（两者都有值时）
func deriveItemProfit(line *model.OrderLine) {
	revenue, okRevenue := line.Values[model.FieldItemRevenue]
	cost, okCost := line.Values[model.FieldItemCost]
	if okRevenue && okCost {
		line.Values[model.FieldItemProfit] = revenue - cost
	}
}

func sortedMappings(mappings map[int]FieldMapping) []FieldMapping {
	out := make([]FieldMapping, 0, len(mappings))
	for _, fm := range mappings {
		out = append(out, fm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ColumnIndex < out[j].ColumnIndex })
	return out
}
