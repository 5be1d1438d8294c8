package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMatchBehaviorCondition_Operators(t *testing.T) {
	require.True(t, matchBehaviorCondition(5, OpGt, "3", ""))
	require.False(t, matchBehaviorCondition(3, OpGt, "3", ""))
	require.True(t, matchBehaviorCondition(3, OpGte, "3", ""))
	require.True(t, matchBehaviorCondition(2, OpLt, "3", ""))
	require.True(t, matchBehaviorCondition(3, OpLte, "3", ""))
	require.True(t, matchBehaviorCondition(3, OpEq, "3", ""))
	require.True(t, matchBehaviorCondition(4, OpNe, "3", ""))
	require.False(t, matchBehaviorCondition(3, OpNe, "3", ""))
}

func TestMatchBehaviorCondition_RangeInclusive(t *testing.T) {
	// value=2, value_end=5 为闭区间：2,3,4,5 命中，1 和 6 不命中
	for _, n := range []float64{2, 3, 4, 5} {
		require.True(t, matchBehaviorCondition(n, OpGte, "2", "5"), "expected %v to match range [2,5]", n)
	}
	require.False(t, matchBehaviorCondition(1, OpGte, "2", "5"))
	require.False(t, matchBehaviorCondition(6, OpGte, "2", "5"))
}

func TestMatchBehaviorCondition_FailClosed(t *testing.T) {
	// 操作数解析失败一律不命中
	require.False(t, matchBehaviorCondition(5, OpGt, "abc", ""))
	require.False(t, matchBehaviorCondition(5, OpGte, "abc", "10"))
	require.False(t, matchBehaviorCondition(5, OpGte, "1", "xyz"))
	require.False(t, matchBehaviorCondition(5, OpEq, "", ""))
}

func TestMatchBehaviorCondition_UnknownOperatorDefaultsToEquality(t *testing.T) {
	require.True(t, matchBehaviorCondition(3, "between!!", "3", ""))
	require.False(t, matchBehaviorCondition(4, "between!!", "3", ""))
}

func TestMatchFieldCondition_NumericComparison(t *testing.T) {
	require.True(t, matchFieldCondition("10", OpGt, "9"))
	require.False(t, matchFieldCondition("8", OpGt, "9"))
	// 字符串比较会得出 "10" < "9"，必须按数值比较
	require.True(t, matchFieldCondition("10", OpGte, "9"))
}

func TestMatchFieldCondition_NumericFailClosed(t *testing.T) {
	// 任一侧不是数值时大小比较永不命中
	require.False(t, matchFieldCondition("abc", OpGt, "5"))
	require.False(t, matchFieldCondition("5", OpGt, "abc"))
	require.False(t, matchFieldCondition("", OpLt, "5"))
}

func TestMatchFieldCondition_EqualityFallsBackToString(t *testing.T) {
	require.True(t, matchFieldCondition("東京", OpEq, "東京"))
	require.False(t, matchFieldCondition("東京", OpEq, "大阪"))
	require.True(t, matchFieldCondition("東京", OpNe, "大阪"))
	// 两侧都是数值时按数值等值（"3" == "3.0"）
	require.True(t, matchFieldCondition("3", OpEq, "3.0"))
}

func TestMatchFieldCondition_Contains(t *testing.T) {
	require.True(t, matchFieldCondition("豊島区東池袋", OpContains, "池袋"))
	require.False(t, matchFieldCondition("豊島区東池袋", OpContains, "渋谷"))
}

func TestMatchFieldCondition_UnknownOperatorDefaultsToEquality(t *testing.T) {
	require.True(t, matchFieldCondition("foo", "startswith", "foo"))
	require.False(t, matchFieldCondition("foobar", "startswith", "foo"))
}

func TestMatchDateWithinDays(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	recent := now.AddDate(0, 0, -10)
	old := now.AddDate(0, 0, -40)

	require.True(t, matchDateWithinDays(&recent, "30", now))
	require.False(t, matchDateWithinDays(&old, "30", now))

	// 从未来院（nil）永不命中
	require.False(t, matchDateWithinDays(nil, "30", now))
	// 天数解析失败不命中
	require.False(t, matchDateWithinDays(&recent, "abc", now))
	require.False(t, matchDateWithinDays(&recent, "-1", now))
}
