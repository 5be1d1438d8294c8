package service

import (
	"strconv"
	"strings"
	"time"
)

// 条件比较运算符
// 未知运算符统一按等值比较处理（不报错）
const (
	OpEq         = "="
	OpNe         = "!="
	OpGt         = ">"
	OpGte        = ">="
	OpLt         = "<"
	OpLte        = "<="
	OpContains   = "contains"
	OpWithinDays = "within_days"
)

// matchBehaviorCondition 行为指标（来院次数/购买金额/再处方次数）的数值比较
// value_end 存在时为闭区间 [value, value_end]，两端解析失败则不命中（fail closed）
func matchBehaviorCondition(actual float64, operator, value, valueEnd string) bool {
	if strings.TrimSpace(valueEnd) != "" {
		lo, errLo := parseNumber(value)
		hi, errHi := parseNumber(valueEnd)
		if errLo != nil || errHi != nil {
			return false
		}
		return actual >= lo && actual <= hi
	}

	v, err := parseNumber(value)
	if err != nil {
		return false
	}
	switch operator {
	case OpGt:
		return actual > v
	case OpGte:
		return actual >= v
	case OpLt:
		return actual < v
	case OpLte:
		return actual <= v
	case OpNe:
		return actual != v
	case OpEq:
		return actual == v
	default:
		// 未知运算符按等值比较
		return actual == v
	}
}

// matchFieldCondition 自定义字段值比较
// 大小比较要求两侧都能解析为数值（任一侧失败则不命中）；
// =/!= 在两侧都是数值时按数值比较，否则退回字符串比较；
// contains 为原始字符串的子串判断
func matchFieldCondition(actual, operator, expected string) bool {
	a, errA := parseNumber(actual)
	e, errE := parseNumber(expected)
	numeric := errA == nil && errE == nil

	switch operator {
	case OpGt:
		return numeric && a > e
	case OpGte:
		return numeric && a >= e
	case OpLt:
		return numeric && a < e
	case OpLte:
		return numeric && a <= e
	case OpNe:
		if numeric {
			return a != e
		}
		return actual != expected
	case OpContains:
		return strings.Contains(actual, expected)
	case OpEq:
		fallthrough
	default:
		// 未知运算符按等值比较
		if numeric {
			return a == e
		}
		return actual == expected
	}
}

// matchDateWithinDays 日期是否落在 now 往前 N 天以内
// actual 为 nil（从未来院）永不命中；N 解析失败不命中
func matchDateWithinDays(actual *time.Time, value string, now time.Time) bool {
	if actual == nil {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return false
	}
	threshold := now.AddDate(0, 0, -n)
	return !actual.Before(threshold)
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
