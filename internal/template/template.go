package template

import (
	"encoding/json"
	"strings"
)

// Template is a named {title, content, footer} record whose content and
// footer may contain {field} placeholders.
type Template struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Footer  string `json:"footer"`
}

// Rendered is the fully substituted message bundle handed to dispatch.
type Rendered struct {
	Title   string
	Content string
	Footer  string
}

// Built-in template identifiers.
const (
	NameStandard = "standard"
	NameDetailed = "detailed"
	NameSimple   = "simple"
	NameCustom   = "custom"
)

var builtins = map[string]Template{
	NameStandard: {
		Title:   "🚀 G라이더 현황 알림",
		Content: "📊 현재 점수: {score}점\n✅ 완료 미션: {completed_missions}개\n🏍️ 활성 라이더: {active_riders}명\n💰 예상 수익: {estimated_income}원",
		Footer:  "📅 {timestamp}",
	},
	NameDetailed: {
		Title:   "📈 G라이더 상세 현황 리포트",
		Content: "🎯 성과 지표\n━━━━━━━━━━━━━━━━━━━━━\n📊 현재 점수: {score}점 ({score_change})\n✅ 완료 미션: {completed_missions}개 ({mission_change})\n🏍️ 활성 라이더: {active_riders}명 ({riders_change})\n💰 예상 수익: {estimated_income}원 ({income_change})\n\n📈 시간대별 추이\n━━━━━━━━━━━━━━━━━━━━━\n🕒 피크시간 성과율: {peak_performance}%\n⏰ 평균 응답시간: {avg_response_time}분\n🎯 목표 달성률: {goal_achievement}%",
		Footer:  "📅 {timestamp} | 다음 업데이트: {next_update}",
	},
	NameSimple: {
		Title:   "G라이더",
		Content: "점수 {score}점 | 미션 {completed_missions}개 | 라이더 {active_riders}명",
		Footer:  "{timestamp}",
	},
}

// Lookup resolves a built-in template by identifier.
func Lookup(name string) (Template, bool) {
	tpl, ok := builtins[name]
	return tpl, ok
}

// BuiltinNames lists the built-in template identifiers in a stable order.
func BuiltinNames() []string {
	return []string{NameStandard, NameDetailed, NameSimple}
}

// ParseError reports a malformed custom template body.
type ParseError struct {
	cause error
}

func (e *ParseError) Error() string {
	return "parse custom template: " + e.cause.Error()
}

func (e *ParseError) Unwrap() error {
	return e.cause
}

// ParseCustom decodes a user-supplied JSON template body. Failures return a
// *ParseError carrying the decode message so it can be shown to the user.
func ParseCustom(raw string) (Template, error) {
	var tpl Template
	if err := json.Unmarshal([]byte(raw), &tpl); err != nil {
		return Template{}, &ParseError{cause: err}
	}
	if strings.TrimSpace(tpl.Content) == "" {
		return Template{}, &ParseError{cause: errEmptyContent}
	}
	return tpl, nil
}

// Render substitutes every {key} occurrence in content and footer with the
// field's string form. The title is passed through untouched. Keys missing
// from fields leave their placeholder as literal text; substitution walks
// fields in insertion order so output is deterministic.
func Render(tpl Template, fields *Fields) Rendered {
	content := tpl.Content
	footer := tpl.Footer
	if fields != nil {
		for _, key := range fields.keys {
			token := "{" + key + "}"
			value := fields.values[key]
			content = strings.ReplaceAll(content, token, value)
			footer = strings.ReplaceAll(footer, token, value)
		}
	}
	return Rendered{Title: tpl.Title, Content: content, Footer: footer}
}
