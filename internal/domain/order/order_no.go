package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// OrderNoGenerator 订单号生成函数（测试中可替换为固定序列）
type OrderNoGenerator func(now time.Time) string

// GenerateOrderNo 生成订单号
// 格式：ORD-<yyyymmdd>-<6位随机数>，示例 ORD-20240315-004271
//
// 同一天只有一百万个号码，冲突并不罕见：
// 订单表对order_no建唯一索引，冲突时由应用层重新生成并重试。
func GenerateOrderNo(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%06d", now.Format("20060102"), rand.IntN(1000000))
}
