package parser

import (
	"strings"
)

// 平台识别关键词，按顺序匹配
var channelKeywords = []struct {
	Channel  string
	Keywords []string
}{
	{"美团", []string{"美团", "meituan", "mt"}},
	{"饿了么", []string{"饿了么", "eleme", "elm"}},
	{"京东", []string{"京东", "jd", "jddj"}},
	{"抖音", []string{"抖音", "douyin", "dy"}},
}

// SheetRecognizer Sheet 类型识别器
type SheetRecognizer struct{}

// NewSheetRecognizer 创建识别器
func NewSheetRecognizer() *SheetRecognizer {
	return &SheetRecognizer{}
}

// Recognize 识别 Sheet 类型
func (r *SheetRecognizer) Recognize(sheetName string, columnNames []string) SheetRecognitionResult {
	normalized := make([]string, len(columnNames))
	for i, col := range columnNames {
		normalized[i] = NormalizeColumnName(col)
	}

	year, month, _ := ExtractYearMonth(sheetName)
	channel := RecognizeChannel(sheetName)

	if result := r.recognizeOrderDetail(sheetName, normalized); result.Confidence >= 0.5 {
		result.Channel = channel
		result.DataYear = year
		result.DataMonth = month
		return result
	}

	if result := r.recognizeSummary(sheetName, normalized); result.Confidence >= 0.3 {
		result.Channel = channel
		return result
	}

	return SheetRecognitionResult{
		SheetName:  sheetName,
		SheetType:  SheetTypeUnknown,
		Confidence: 0,
		Channel:    channel,
	}
}

// recognizeOrderDetail 识别订单商品明细
func (r *SheetRecognizer) recognizeOrderDetail(sheetName string, columns []string) SheetRecognitionResult {
	keyFields := []string{
		"订单编号|订单号|订单ID|order_id",
		"门店|店铺|商家名称|store_name",
		"商品名称|品名|product_name",
		"一级分类|类目|category_l1",
		"配送费|delivery_fee",
		"服务费|佣金|platform_service_fee|platform_commission",
	}

	matchCount := 0
	for _, field := range keyFields {
		for _, col := range columns {
			if MatchPattern(col, field) {
				matchCount++
				break
			}
		}
	}

	confidence := float64(matchCount) / float64(len(keyFields))

	// 没有订单号列无法聚合
	hasOrderID := false
	for _, col := range columns {
		if MatchPattern(col, keyFields[0]) {
			hasOrderID = true
			break
		}
	}
	if !hasOrderID {
		return SheetRecognitionResult{SheetName: sheetName, SheetType: SheetTypeUnknown, Confidence: confidence}
	}

	if ContainsAny(sheetName, []string{"明细", "订单", "商品"}) {
		confidence += 0.1
	}
	if confidence > 1 {
		confidence = 1
	}

	return SheetRecognitionResult{
		SheetName:  sheetName,
		SheetType:  SheetTypeOrderDetail,
		Confidence: confidence,
	}
}

// recognizeSummary 识别汇总表（账单汇总、对账单等），导入时跳过
func (r *SheetRecognizer) recognizeSummary(sheetName string, columns []string) SheetRecognitionResult {
	confidence := 0.0
	if ContainsAny(sheetName, []string{"汇总", "合计", "对账", "账单", "统计"}) {
		confidence += 0.5
	}
	for _, col := range columns {
		if ContainsAny(col, []string{"合计", "汇总", "总计"}) {
			confidence += 0.2
			break
		}
	}

	sheetType := SheetTypeUnknown
	if confidence >= 0.3 {
		sheetType = SheetTypeSummary
	}
	return SheetRecognitionResult{
		SheetName:  sheetName,
		SheetType:  sheetType,
		Confidence: confidence,
	}
}

// RecognizeChannel 从 Sheet 名或文件名识别平台
func RecognizeChannel(name string) string {
	lower := strings.ToLower(name)
	for _, ck := range channelKeywords {
		for _, kw := range ck.Keywords {
			// 英文缩写只在独立出现时生效，避免误匹配
			if isASCII(kw) && len(kw) <= 4 {
				if containsToken(lower, kw) {
					return ck.Channel
				}
				continue
			}
			if strings.Contains(lower, kw) {
				return ck.Channel
			}
		}
	}
	return ""
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// containsToken 以非字母数字为边界查找关键词
func containsToken(text, token string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], token)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(token)
		if (idx == 0 || !isAlnum(text[idx-1])) && (end == len(text) || !isAlnum(text[end])) {
			return true
		}
		start = idx + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
