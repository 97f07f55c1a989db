package template

import (
	"errors"
	"testing"
)

func TestRenderStandardLeavesUnsuppliedPlaceholder(t *testing.T) {
	tpl, ok := Lookup(NameStandard)
	if !ok {
		t.Fatal("standard template must exist")
	}

	fields := NewFields().
		Set("score", 92).
		Set("completed_missions", 156).
		Set("active_riders", 31)

	rendered := Render(tpl, fields)

	want := "📊 현재 점수: 92점\n✅ 완료 미션: 156개\n🏍️ 활성 라이더: 31명\n💰 예상 수익: {estimated_income}원"
	if rendered.Content != want {
		t.Fatalf("unexpected content:\n got %q\nwant %q", rendered.Content, want)
	}
	if rendered.Footer != "📅 {timestamp}" {
		t.Fatalf("unsupplied footer placeholder must stay literal, got %q", rendered.Footer)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	tpl, _ := Lookup(NameSimple)
	fields := NewFields().
		Set("score", 750).
		Set("completed_missions", 23).
		Set("active_riders", 31)

	first := Render(tpl, fields)
	for i := 0; i < 5; i++ {
		if got := Render(tpl, fields); got != first {
			t.Fatalf("render #%d differs: %#v vs %#v", i, got, first)
		}
	}
	if first.Content != "점수 750점 | 미션 23개 | 라이더 31명" {
		t.Fatalf("unexpected simple content %q", first.Content)
	}
}

func TestRenderTitleIsNotSubstituted(t *testing.T) {
	tpl := Template{Title: "{score}", Content: "{score}", Footer: ""}
	rendered := Render(tpl, NewFields().Set("score", 1))
	if rendered.Title != "{score}" {
		t.Fatalf("title must pass through untouched, got %q", rendered.Title)
	}
	if rendered.Content != "1" {
		t.Fatalf("content must substitute, got %q", rendered.Content)
	}
}

func TestRenderNilFields(t *testing.T) {
	tpl, _ := Lookup(NameSimple)
	rendered := Render(tpl, nil)
	if rendered.Content != tpl.Content {
		t.Fatal("nil fields must leave all placeholders literal")
	}
}

func TestParseCustom(t *testing.T) {
	raw := `{"title":"사용자 알림","content":"점수 {score}","footer":"{timestamp}"}`
	tpl, err := ParseCustom(raw)
	if err != nil {
		t.Fatalf("valid custom template should parse: %v", err)
	}
	if tpl.Title != "사용자 알림" {
		t.Fatalf("unexpected title %q", tpl.Title)
	}
}

func TestParseCustomMalformed(t *testing.T) {
	_, err := ParseCustom("{not json")
	if err == nil {
		t.Fatal("malformed JSON must return an error")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error must be a *ParseError, got %T", err)
	}
	if parseErr.Error() == "" {
		t.Fatal("parse error must carry the failure message")
	}
}

func TestParseCustomEmptyContent(t *testing.T) {
	if _, err := ParseCustom(`{"title":"t","content":"  "}`); err == nil {
		t.Fatal("custom template without content must fail")
	}
}

func TestFieldsInsertionOrderAndOverwrite(t *testing.T) {
	fields := NewFields().
		Set("a", 1).
		Set("b", 2).
		Set("a", 3)

	if fields.Len() != 2 {
		t.Fatalf("re-setting a key must not grow the map, len=%d", fields.Len())
	}
	if v, _ := fields.Get("a"); v != "3" {
		t.Fatalf("overwrite must keep the latest value, got %q", v)
	}
	if fields.keys[0] != "a" || fields.keys[1] != "b" {
		t.Fatalf("insertion order must be stable, got %v", fields.keys)
	}
}
