// Package money 金额换算
// 系统内部金额统一使用int64存储"分"，只在展示时转换为"元"
package money

import "github.com/shopspring/decimal"

// FormatYuan 分 → 元字符串，保留两位小数
// 例如：5900 → "59.00"，-1050 → "-10.50"
func FormatYuan(fen int64) string {
	return decimal.New(fen, -2).StringFixed(2)
}

// ParseYuan 元字符串 → 分
// 超过两位的小数按四舍五入处理
func ParseYuan(yuan string) (int64, error) {
	d, err := decimal.NewFromString(yuan)
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
