package dashboard

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"grider-status-alerts/internal/snapshot"
	"grider-status-alerts/internal/template"
)

func sampleSnapshot() snapshot.Snapshot {
	now := time.Date(2025, 9, 1, 12, 30, 0, 0, time.UTC)
	return snapshot.Snapshot{
		Score:          92,
		Completed:      156,
		AcceptanceRate: decimal.NewFromFloat(92.9),
		Riders: []snapshot.Rider{
			{Name: "김철수", Completed: 5, AcceptanceRate: decimal.NewFromFloat(90)},
			{Name: "홍길동", Completed: 0, AcceptanceRate: decimal.NewFromFloat(80)},
		},
		Timestamp: now,
		FetchedAt: now,
	}
}

func TestApplySnapshotFillsRegions(t *testing.T) {
	view := NewView()
	view.ApplySnapshot(sampleSnapshot())

	regions := view.Regions()
	if !regions.HasData {
		t.Fatal("regions must report data after an ok snapshot")
	}
	if regions.Score != 92 || regions.Completed != 156 {
		t.Fatalf("unexpected totals %+v", regions)
	}
	if regions.ActiveRiders != 1 || len(regions.Riders) != 1 || regions.Riders[0].Name != "김철수" {
		t.Fatalf("rider list must only keep riders with completions: %+v", regions.Riders)
	}
}

func TestApplySnapshotIgnoresErroredSnapshot(t *testing.T) {
	view := NewView()
	view.ApplySnapshot(sampleSnapshot())
	view.ApplySnapshot(snapshot.Errored("수집 실패", time.Now()))

	if regions := view.Regions(); !regions.HasData || regions.Score != 92 {
		t.Fatalf("errored snapshot must not blank rendered data: %+v", regions)
	}
}

func TestStatusLine(t *testing.T) {
	view := NewView()
	if got := view.StatusLine(); got != "연결 끊김" {
		t.Fatalf("fresh view must be offline, got %q", got)
	}

	updated := time.Date(2025, 9, 1, 12, 30, 0, 0, time.UTC)
	view.SetStatus(StatusOnline, "", updated)
	if got := view.StatusLine(); got != "실시간 연결 (2025-09-01 12:30:00 기준)" {
		t.Fatalf("unexpected online line %q", got)
	}

	view.SetStatus(StatusError, "", time.Time{})
	if got := view.StatusLine(); got != "오류: 데이터 수신 중단" {
		t.Fatalf("error without detail must use the default reason, got %q", got)
	}

	view.SetStatus(StatusError, "connection refused", time.Time{})
	if got := view.StatusLine(); got != "오류: connection refused" {
		t.Fatalf("unexpected error line %q", got)
	}
}

func TestActivityLogKeepsNewestTen(t *testing.T) {
	view := NewView()
	for i := 0; i < 15; i++ {
		view.AppendActivity(ActivityEntry{
			Time:    time.Now(),
			Text:    fmt.Sprintf("entry %d", i),
			Outcome: "success",
		})
	}

	activity := view.Activity()
	if len(activity) != 10 {
		t.Fatalf("log must cap at ten entries, got %d", len(activity))
	}
	if activity[0].Text != "entry 14" {
		t.Fatalf("newest entry must come first, got %q", activity[0].Text)
	}
	if activity[9].Text != "entry 5" {
		t.Fatalf("oldest kept entry wrong, got %q", activity[9].Text)
	}
}

func TestRenderEmptyView(t *testing.T) {
	var buf bytes.Buffer
	if err := NewView().Render(&buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "수신된 데이터가 없습니다.") {
		t.Fatalf("empty view must say so:\n%s", buf.String())
	}
}

func TestRenderFullView(t *testing.T) {
	view := NewView()
	snap := sampleSnapshot()
	view.ApplySnapshot(snap)
	view.SetStatus(StatusOnline, "", snap.Timestamp)
	view.SetPreview(template.Rendered{Title: "🚀 G라이더 현황 알림", Content: "점수 92점", Footer: "📅 2025-09-01"})
	view.AppendActivity(ActivityEntry{Time: snap.FetchedAt, Text: "데이터 수집 완료", Outcome: "success"})

	var buf bytes.Buffer
	if err := view.Render(&buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"92점", "156개", "92.9%", "김철수", "메시지 미리보기", "최근 활동", "데이터 수집 완료"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "홍길동") {
		t.Fatalf("idle rider must not appear in the rider list:\n%s", out)
	}
}

func TestRenderNoActiveRiders(t *testing.T) {
	view := NewView()
	snap := sampleSnapshot()
	snap.Riders = []snapshot.Rider{{Name: "홍길동", Completed: 0}}
	view.ApplySnapshot(snap)

	var buf bytes.Buffer
	if err := view.Render(&buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "운행 기록이 있는 라이더가 없습니다.") {
		t.Fatalf("empty rider list must say so:\n%s", buf.String())
	}
}

func TestSanitizeInline(t *testing.T) {
	if got := SanitizeInline("line one\nline two\r\nline three"); got != "line one line two  line three" {
		t.Fatalf("line breaks must collapse to spaces, got %q", got)
	}
	if got := SanitizeInline("no breaks"); got != "no breaks" {
		t.Fatalf("plain text must pass through, got %q", got)
	}
}

func TestRegionsReturnsCopy(t *testing.T) {
	view := NewView()
	view.ApplySnapshot(sampleSnapshot())

	regions := view.Regions()
	regions.Riders[0].Name = "mutated"

	if view.Regions().Riders[0].Name != "김철수" {
		t.Fatal("Regions must return an isolated copy of the rider slice")
	}
}
