package dashboard

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"grider-status-alerts/internal/snapshot"
	"grider-status-alerts/internal/template"
)

// Status is the feed connectivity indicator.
type Status string

// Indicator states.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

const maxActivityEntries = 10

// ActivityEntry is one row of the recent-activity log.
type ActivityEntry struct {
	Time    time.Time
	Text    string
	Outcome string
}

// Regions is a copy of the named dashboard regions for display and tests.
type Regions struct {
	Score          int
	Completed      int
	AcceptanceRate decimal.Decimal
	ActiveRiders   int
	Riders         []snapshot.Rider
	Preview        template.Rendered
	Status         Status
	StatusDetail   string
	LastUpdated    time.Time
	LastChecked    time.Time
	HasData        bool
}

// View holds the user-facing dashboard state. An errored refresh updates
// only the status indicator; previously rendered data stays visible.
type View struct {
	mu       sync.Mutex
	regions  Regions
	activity []ActivityEntry
}

// NewView constructs an empty dashboard view in the offline state.
func NewView() *View {
	return &View{regions: Regions{Status: StatusOffline}}
}

// ApplySnapshot fills the stat and rider-list regions from an ok snapshot.
func (v *View) ApplySnapshot(s snapshot.Snapshot) {
	if !s.OK() {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	active := s.ActiveRiders()
	v.regions.Score = s.Score
	v.regions.Completed = s.Completed
	v.regions.AcceptanceRate = s.AcceptanceRate
	v.regions.ActiveRiders = len(active)
	v.regions.Riders = active
	v.regions.HasData = true
}

// SetPreview updates the message-preview region.
func (v *View) SetPreview(r template.Rendered) {
	v.mu.Lock()
	v.regions.Preview = r
	v.mu.Unlock()
}

// SetStatus updates the status indicator. lastUpdated is only meaningful
// for the online state.
func (v *View) SetStatus(status Status, detail string, lastUpdated time.Time) {
	v.mu.Lock()
	v.regions.Status = status
	v.regions.StatusDetail = detail
	if status == StatusOnline && !lastUpdated.IsZero() {
		v.regions.LastUpdated = lastUpdated
	}
	v.mu.Unlock()
}

// Touch records that a refresh cycle ran, regardless of its outcome.
func (v *View) Touch(t time.Time) {
	v.mu.Lock()
	v.regions.LastChecked = t
	v.mu.Unlock()
}

// AppendActivity prepends an activity entry, keeping the newest ten.
func (v *View) AppendActivity(entry ActivityEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.activity = append([]ActivityEntry{entry}, v.activity...)
	if len(v.activity) > maxActivityEntries {
		v.activity = v.activity[:maxActivityEntries]
	}
}

// Regions returns a copy of the current region values.
func (v *View) Regions() Regions {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := v.regions
	out.Riders = append([]snapshot.Rider(nil), v.regions.Riders...)
	return out
}

// Activity returns a copy of the activity log, newest first.
func (v *View) Activity() []ActivityEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]ActivityEntry(nil), v.activity...)
}

// StatusLine renders the indicator text the way the web dashboard did.
func (v *View) StatusLine() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.regions.Status {
	case StatusOnline:
		return fmt.Sprintf("실시간 연결 (%s 기준)", v.regions.LastUpdated.Format("2006-01-02 15:04:05"))
	case StatusError:
		detail := v.regions.StatusDetail
		if detail == "" {
			detail = "데이터 수신 중단"
		}
		return "오류: " + detail
	default:
		return "연결 끊김"
	}
}

// Render writes the dashboard regions as text.
func (v *View) Render(w io.Writer) error {
	regions := v.Regions()
	activity := v.Activity()
	statusLine := v.StatusLine()

	fmt.Fprintf(w, "상태: %s\n", statusLine)
	if !regions.LastChecked.IsZero() {
		fmt.Fprintf(w, "마지막 확인: %s\n", humanize.Time(regions.LastChecked))
	}

	if !regions.HasData {
		fmt.Fprintln(w, "수신된 데이터가 없습니다.")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "총점\t총완료\t수락률\t활성 라이더")
	fmt.Fprintf(writer, "%d점\t%d개\t%s%%\t%d명\n",
		regions.Score,
		regions.Completed,
		regions.AcceptanceRate.StringFixed(1),
		regions.ActiveRiders,
	)
	if err := writer.Flush(); err != nil {
		return err
	}

	if len(regions.Riders) == 0 {
		fmt.Fprintln(w, "운행 기록이 있는 라이더가 없습니다.")
	} else {
		fmt.Fprintln(w, "\n라이더 현황")
		riderWriter := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, r := range regions.Riders {
			fmt.Fprintf(riderWriter, "%s\t완료: %d\t수락률: %s%%\n", r.Name, r.Completed, r.AcceptanceRate.StringFixed(1))
		}
		if err := riderWriter.Flush(); err != nil {
			return err
		}
	}

	if regions.Preview.Title != "" || regions.Preview.Content != "" {
		fmt.Fprintln(w, "\n메시지 미리보기")
		fmt.Fprintln(w, regions.Preview.Title)
		fmt.Fprintln(w, regions.Preview.Content)
		fmt.Fprintln(w, regions.Preview.Footer)
	}

	if len(activity) > 0 {
		fmt.Fprintln(w, "\n최근 활동")
		for _, entry := range activity {
			fmt.Fprintf(w, "%s  %s (%s)\n", entry.Time.Format("15:04:05"), SanitizeInline(entry.Text), entry.Outcome)
		}
	}

	return nil
}

// SanitizeInline collapses line breaks so a value fits a single output row.
func SanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
