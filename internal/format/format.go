// Package format 提供时长与字节数的双向格式化。
//
// ParseHMS 的“有损”语义是刻意的：排序比较绝不允许失败，
// 非法值一律按 0 时长参与排序。
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Seconds 把秒数格式化为时间串：有小时输出 HH:MM:SS，否则 MM:SS，均补零到 2 位。
// 四舍五入到最近的整秒。
func Seconds(seconds float64) string {
	total := uint32(math.Round(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// ParseHMS 把 "H:M:S" 或 "M:S" 解析为秒数。
// 任何无法解析的分量按 0 计；其他形状整体返回 0。
func ParseHMS(s string) uint32 {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 3:
		return atoi(parts[0])*3600 + atoi(parts[1])*60 + atoi(parts[2])
	case 2:
		return atoi(parts[0])*60 + atoi(parts[1])
	default:
		return 0
	}
}

func atoi(s string) uint32 {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

const (
	kib = 1 << 10
	mib = 1 << 20
	gib = 1 << 30
)

// Bytes 把字节数格式化为人类可读串（B/KB/MB/GB，两位小数）。
// n < 0 表示大小未知。
func Bytes(n int64) string {
	switch {
	case n < 0:
		return "未知"
	case n < kib:
		return fmt.Sprintf("%d B", n)
	case n < mib:
		return fmt.Sprintf("%.2f KB", float64(n)/kib)
	case n < gib:
		return fmt.Sprintf("%.2f MB", float64(n)/mib)
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/gib)
	}
}
