package domain

// ConditionType 筛选条件类型（tagged union 的判别字段）
type ConditionType string

const (
	ConditionTag            ConditionType = "tag"
	ConditionMark           ConditionType = "mark"
	ConditionField          ConditionType = "field"
	ConditionHasLineUID     ConditionType = "has_line_uid"
	ConditionVisitCount     ConditionType = "visit_count"
	ConditionPurchaseAmount ConditionType = "purchase_amount"
	ConditionLastVisit      ConditionType = "last_visit"
	ConditionReorderCount   ConditionType = "reorder_count"
)

// MatchPolarity tag / has_line_uid 条件的 has/not_has 极性
const (
	MatchHas    = "has"
	MatchNotHas = "not_has"
)

// FilterCondition 单个筛选条件
// type 决定哪些字段有效：
//   - tag:          tag_id + match
//   - mark:         values
//   - field:        field_id + operator + value
//   - has_line_uid: match
//   - visit_count / purchase_amount / reorder_count:
//                   operator + value（value_end 存在时为闭区间 [value, value_end]）
//   - visit_count / purchase_amount 另可带 date_range
//   - last_visit:   operator(within_days) + value（天数）
type FilterCondition struct {
	Type      ConditionType `json:"type"`
	TagID     int64         `json:"tag_id,omitempty"`
	Match     string        `json:"match,omitempty"`
	Values    []string      `json:"values,omitempty"`
	FieldID   int64         `json:"field_id,omitempty"`
	Operator  string        `json:"operator,omitempty"`
	Value     string        `json:"value,omitempty"`
	ValueEnd  string        `json:"value_end,omitempty"`
	DateRange string        `json:"date_range,omitempty"`
}

// FilterGroup 条件列表
// Operator 字段为前端类型预留（AND/OR），当前求值器不读取：
// include 始终按顺序逐条取交集（AND）
type FilterGroup struct {
	Operator   string            `json:"operator,omitempty"`
	Conditions []FilterCondition `json:"conditions"`
}

// FilterRuleSet 受众筛选规则
// include 条件按顺序取交集收窄，exclude 条件按顺序做差集
type FilterRuleSet struct {
	Include FilterGroup `json:"include"`
	Exclude FilterGroup `json:"exclude"`
}

// IsEmpty 是否为空规则（全集直接命中）
func (r FilterRuleSet) IsEmpty() bool {
	return len(r.Include.Conditions) == 0 && len(r.Exclude.Conditions) == 0
}
