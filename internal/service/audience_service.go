package service

import (
	"context"
	"time"

	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/domain"
	"github.com/nonamebeautyonline-spec/em-clinic-sub017/internal/repository"

	"go.uber.org/zap"
)

// AudienceService 广播受众解析服务
//
// 解析流程：
//  1. 全集：提交过问诊表的全部患者（按 created_at DESC 去重，每人保留最新一条）
//  2. include 条件按顺序逐条取交集收窄
//  3. exclude 条件按顺序逐条做差集
//
// 同一份数据快照下解析结果是确定的；每次调用都做新鲜读取，
// 不依赖事务快照隔离
type AudienceService struct {
	intake   repository.IntakeRepository
	patients repository.PatientsRepository
	tags     repository.TagMembersRepository
	marks    repository.MarksRepository
	fields   repository.FieldValuesRepository
	metrics  *BehaviorMetricsService
	logger   *zap.Logger

	// 测试覆盖当前时间用
	now func() time.Time
}

// NewAudienceService 创建受众解析服务
func NewAudienceService(
	intake repository.IntakeRepository,
	patients repository.PatientsRepository,
	tags repository.TagMembersRepository,
	marks repository.MarksRepository,
	fields repository.FieldValuesRepository,
	metrics *BehaviorMetricsService,
	logger *zap.Logger,
) *AudienceService {
	return &AudienceService{
		intake:   intake,
		patients: patients,
		tags:     tags,
		marks:    marks,
		fields:   fields,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve 解析一条筛选规则对应的目标患者列表
func (s *AudienceService) Resolve(ctx context.Context, tenantID string, rules domain.FilterRuleSet) ([]domain.BroadcastTarget, error) {
	working, err := s.buildUniverse(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// include：逐条取交集（rules.Include.Operator 为预留字段，不参与求值）
	for _, cond := range rules.Include.Conditions {
		working = s.applyCondition(ctx, tenantID, working, cond, true)
	}

	// exclude：逐条做差集
	for _, cond := range rules.Exclude.Conditions {
		working = s.applyCondition(ctx, tenantID, working, cond, false)
	}

	return working, nil
}

// buildUniverse 构建全集：问诊记录 join 患者，按 patient_id 去重
// 问诊记录按 created_at DESC 取回，保留每个患者首次出现的行（即最新提交）
func (s *AudienceService) buildUniverse(ctx context.Context, tenantID string) ([]domain.BroadcastTarget, error) {
	records, err := repository.FetchAll(func(offset, limit int) ([]*domain.IntakeRecord, error) {
		return s.intake.ListIntakePage(ctx, tenantID, offset, limit)
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if seen[rec.PatientID] {
			continue
		}
		seen[rec.PatientID] = true
		ids = append(ids, rec.PatientID)
	}

	patients, err := repository.FetchAll(func(offset, limit int) ([]*domain.Patient, error) {
		return s.patients.ListByIDsPage(ctx, tenantID, ids, offset, limit)
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Patient, len(patients))
	for _, p := range patients {
		byID[p.PatientID] = p
	}

	targets := make([]domain.BroadcastTarget, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			// 问诊记录引用了不存在的患者行（数据不一致），跳过
			s.logger.Debug("Intake record references unknown patient", zap.String("patient_id", id))
			continue
		}
		targets = append(targets, domain.BroadcastTarget{
			PatientID:   p.PatientID,
			PatientName: p.PatientName,
			LineUserID:  p.LineUserID,
		})
	}
	return targets, nil
}

// applyCondition 对工作集应用一条条件
// include=true 保留命中者，include=false 剔除命中者
// 未知条件类型原样放行；条件数据读取失败按空命中集处理（include 收窄为空，
// exclude 不剔除任何人），只记警告不中断整体解析
func (s *AudienceService) applyCondition(ctx context.Context, tenantID string, working []domain.BroadcastTarget, cond domain.FilterCondition, include bool) []domain.BroadcastTarget {
	if len(working) == 0 {
		return working
	}

	var matched map[string]bool
	switch cond.Type {
	case domain.ConditionTag:
		matched = s.tagMatchSet(ctx, tenantID, working, cond)
	case domain.ConditionMark:
		matched = s.markMatchSet(ctx, tenantID, working, cond)
	case domain.ConditionField:
		matched = s.fieldMatchSet(ctx, tenantID, working, cond)
	case domain.ConditionHasLineUID:
		matched = s.lineUIDMatchSet(working, cond)
	case domain.ConditionVisitCount:
		matched = s.visitCountMatchSet(ctx, tenantID, working, cond)
	case domain.ConditionPurchaseAmount:
		matched = s.purchaseAmountMatchSet(ctx, tenantID, working, cond)
	case domain.ConditionLastVisit:
		matched = s.lastVisitMatchSet(ctx, tenantID, working, cond)
	case domain.ConditionReorderCount:
		matched = s.reorderCountMatchSet(ctx, tenantID, working, cond)
	default:
		// 未知类型不收窄也不报错
		s.logger.Warn("Unknown filter condition type, passing through", zap.String("type", string(cond.Type)))
		return working
	}

	out := make([]domain.BroadcastTarget, 0, len(working))
	for _, t := range working {
		if matched[t.PatientID] == include {
			out = append(out, t)
		}
	}
	return out
}

// workingIDs 工作集的患者 id 列表
func workingIDs(working []domain.BroadcastTarget) []string {
	ids := make([]string, 0, len(working))
	for _, t := range working {
		ids = append(ids, t.PatientID)
	}
	return ids
}

// tagMatchSet 标签条件：拥有 tag 即命中，match=not_has 时取反
func (s *AudienceService) tagMatchSet(ctx context.Context, tenantID string, working []domain.BroadcastTarget, cond domain.FilterCondition) map[string]bool {
	members, err := repository.FetchAll(func(offset, limit int) ([]*domain.TagMember, error) {
		return s.tags.ListByTagPage(ctx, tenantID, cond.TagID, offset, limit)
	})
	if err != nil {
		s.logger.Warn("Tag condition fetch failed, treating match set as empty",
			zap.Int64("tag_id", cond.TagID), zap.Error(err))
		members = nil
	}

	has := make(map[string]bool, len(members))
	for _, m := range members {
		has[m.PatientID] = true
	}
	return applyPolarity(working, has, cond.Match)
}

// markMatchSet 标记条件：mark_value 命中任一给定值即命中
func (s *AudienceService) markMatchSet(ctx context.Context, tenantID string, working []domain.BroadcastTarget, cond domain.FilterCondition) map[string]bool {
	members, err := repository.FetchAll(func(offset, limit int) ([]*domain.MarkMember, error) {
		return s.marks.ListByValuesPage(ctx, tenantID, cond.Values, offset, limit)
	})
	if err != nil {
		s.logger.Warn("Mark condition fetch failed, treating match set as empty",
			zap.Strings("values", cond.Values), zap.Error(err))
		members = nil
	}

	matched := make(map[string]bool, len(members))
	for _, m := range members {
		matched[m.PatientID] = true
	}
	return matched
}

// fieldMatchSet 自定义字段条件：没有字段值的患者不命中（fail closed）
func (s *AudienceService) fieldMatchSet(ctx context.Context, tenantID string, working []domain.BroadcastTarget, cond domain.FilterCondition) map[string]bool {
	values, err := repository.FetchAll(func(offset, limit int) ([]*domain.FieldValue, error) {
		return s.fields.ListByFieldPage(ctx, tenantID, cond.FieldID, offset, limit)
	})
	if err != nil {
		s.logger.Warn("Field condition fetch failed, treating match set as empty",
			zap.Int64("field_id", cond.FieldID), zap.Error(err))
		values = nil
	}

	matched := make(map[string]bool)
	for _, v := range values {
		if matchFieldCondition(v.Value, cond.Operator, cond.Value) {
			matched[v.PatientID] = true
		}
	}
	return matched
}

// lineUIDMatchSet LINE 绑定条件：已绑定即命中，match=not_has 时取反
// 绑定状态已在工作集里，不需要回库
func (s *AudienceService) lineUIDMatchSet(working []domain.BroadcastTarget, cond domain.FilterCondition) map[string]bool {
	has := make(map[string]bool, len(working))
	for _, t := range working {
		if t.HasLineUID() {
			has[t.PatientID] = true
		}
	}
	return applyPolarity(working, has, cond.Match)
}

// visitCountMatchSet 来院次数条件
// 指标 map 里没有的患者按 0 次参与比较
func (s *AudienceService) visitCountMatchSet(ctx context.Context, tenantID string, working []domain.BroadcastTarget, cond domain.FilterCondition) map[string]bool {
	counts, err := s.metrics.VisitCounts(ctx, tenantID, workingIDs(working), cond.DateRange)
	if err != nil {
		s.logger.Warn("Visit count fetch failed, treating match set as empty", zap.Error(err))
		return map[string]bool{}
	}

	matched := make(map[string]bool)
	for _, t := range working {
		if matchBehaviorCondition(float64(counts[t.PatientID]), cond.Operator, cond.Value, cond.ValueEnd) {
			matched[t.PatientID] = true
		}
	}
	return matched
}

// purchaseAmountMatchSet 购买金额条件
func (s *AudienceService) purchaseAmountMatchSet(ctx context.Context, tenantID string, working []domain.BroadcastTarget, cond domain.FilterCondition) map[string]bool {
	amounts, err := s.metrics.PurchaseAmounts(ctx, tenantID, workingIDs(working), cond.DateRange)
	if err != nil {
		s.logger.Warn("Purchase amount fetch failed, treating match set as empty", zap.Error(err))
		return map[string]bool{}
	}

	matched := make(map[string]bool)
	for _, t := range working {
		if matchBehaviorCondition(float64(amounts[t.PatientID]), cond.Operator, cond.Value, cond.ValueEnd) {
			matched[t.PatientID] = true
		}
	}
	return matched
}

// lastVisitMatchSet 最近来院条件
// within_days 之外的运算符退化为日期（YYYY-MM-DD）等值比较；从未来院不命中
func (s *AudienceService) lastVisitMatchSet(ctx context.Context, tenantID string, working []domain.BroadcastTarget, cond domain.FilterCondition) map[string]bool {
	last, err := s.metrics.LastVisitDates(ctx, tenantID, workingIDs(working))
	if err != nil {
		s.logger.Warn("Last visit fetch failed, treating match set as empty", zap.Error(err))
		return map[string]bool{}
	}

	matched := make(map[string]bool)
	for _, t := range working {
		var actual *time.Time
		if d, ok := last[t.PatientID]; ok {
			actual = &d
		}
		if s.matchLastVisit(actual, cond) {
			matched[t.PatientID] = true
		}
	}
	return matched
}

func (s *AudienceService) matchLastVisit(actual *time.Time, cond domain.FilterCondition) bool {
	switch cond.Operator {
	case OpWithinDays:
		return matchDateWithinDays(actual, cond.Value, s.now())
	default:
		// 未知运算符按等值比较（日期格式化后与 value 比较）
		if actual == nil {
			return false
		}
		return actual.Format("2006-01-02") == cond.Value
	}
}

// reorderCountMatchSet 再处方次数条件（不做日期过滤）
func (s *AudienceService) reorderCountMatchSet(ctx context.Context, tenantID string, working []domain.BroadcastTarget, cond domain.FilterCondition) map[string]bool {
	counts, err := s.metrics.ReorderCounts(ctx, tenantID, workingIDs(working))
	if err != nil {
		s.logger.Warn("Reorder count fetch failed, treating match set as empty", zap.Error(err))
		return map[string]bool{}
	}

	matched := make(map[string]bool)
	for _, t := range working {
		if matchBehaviorCondition(float64(counts[t.PatientID]), cond.Operator, cond.Value, cond.ValueEnd) {
			matched[t.PatientID] = true
		}
	}
	return matched
}

// applyPolarity 按 has/not_has 极性调整命中集
// not_has 时命中集取反（相对工作集求补）
func applyPolarity(working []domain.BroadcastTarget, has map[string]bool, match string) map[string]bool {
	if match != domain.MatchNotHas {
		return has
	}
	inverted := make(map[string]bool, len(working))
	for _, t := range working {
		if !has[t.PatientID] {
			inverted[t.PatientID] = true
		}
	}
	return inverted
}
