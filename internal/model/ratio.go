package model

import (
	"encoding/json"
	"strconv"
)

// Ratio 比率；分母为零时 Defined=false，序列化为 null
type Ratio struct {
	Value   float64
	Defined bool
}

// NewRatio 计算 num/den，den 为零时返回未定义
func NewRatio(num, den float64) Ratio {
	if den == 0 {
		return Ratio{}
	}
	return Ratio{Value: num / den, Defined: true}
}

// String 文本表示
func (r Ratio) String() string {
	if !r.Defined {
		return "undefined"
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

// MarshalJSON 未定义输出 null
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// UnmarshalJSON null 还原为未定义
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Ratio{Value: v, Defined: true}
	return nil
}
