package timing

import "fmt"

// ViewWidth is the visual sensor's field-of-view setting.
type ViewWidth int

const (
	ViewNarrow ViewWidth = iota
	ViewNormal
	ViewWide
)

// ViewQuality is the visual sensor's quality setting.
type ViewQuality int

const (
	QualityHigh ViewQuality = iota
	QualityLow
)

func (w ViewWidth) String() string {
	switch w {
	case ViewNarrow:
		return "narrow"
	case ViewNormal:
		return "normal"
	case ViewWide:
		return "wide"
	}
	return fmt.Sprintf("width(%d)", int(w))
}

func (q ViewQuality) String() string {
	switch q {
	case QualityHigh:
		return "high"
	case QualityLow:
		return "low"
	}
	return fmt.Sprintf("quality(%d)", int(q))
}

// ParseViewWidth maps a protocol token to a ViewWidth.
func ParseViewWidth(s string) (ViewWidth, bool) {
	switch s {
	case "narrow":
		return ViewNarrow, true
	case "normal":
		return ViewNormal, true
	case "wide":
		return ViewWide, true
	}
	return 0, false
}

// ParseViewQuality maps a protocol token to a ViewQuality.
func ParseViewQuality(s string) (ViewQuality, bool) {
	switch s {
	case "high":
		return QualityHigh, true
	case "low":
		return QualityLow, true
	}
	return 0, false
}

// ViewMode is a (width, quality) pair.
type ViewMode struct {
	Width   ViewWidth
	Quality ViewQuality
}

var (
	// PreferredView is the operational view mode once synchronized.
	PreferredView = ViewMode{Width: ViewNormal, Quality: QualityHigh}
	// AcquireView gives the shortest visual period so that one report
	// lands on the proprioceptive report; only used while play is paused.
	AcquireView = ViewMode{Width: ViewNarrow, Quality: QualityLow}
	// LiveAcquireView is the best quality at the narrowest width, the only
	// acquisition request allowed during live play.
	LiveAcquireView = ViewMode{Width: ViewNarrow, Quality: QualityHigh}
)

// PeriodCycles is the number of cycles between visual reports for a
// synchronized sensor in this mode.
func (m ViewMode) PeriodCycles() int {
	switch m.Width {
	case ViewNarrow:
		return 1
	case ViewWide:
		return 3
	default:
		return 2
	}
}

func (m ViewMode) String() string {
	return m.Width.String() + " " + m.Quality.String()
}
