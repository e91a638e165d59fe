package schemas

// Role classifies the interactive purpose of a Region.
type Role string

const (
	RoleButton   Role = "button"
	RoleLink     Role = "link"
	RoleTextbox  Role = "textbox"
	RoleCheckbox Role = "checkbox"
	RoleRadio    Role = "radio"
	RoleTextarea Role = "textarea"
	RoleSelect   Role = "select"
	RoleOther    Role = "other"
)

// BBox is a viewport-relative bounding box in CSS pixels.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// MinDimension reports the smaller of width and height, used by the
// catalogue's 5px visibility filter.
func (b BBox) MinDimension() float64 {
	if b.W < b.H {
		return b.W
	}
	return b.H
}

// Region is a snapshot of one interactive element, valid only for the
// scan that produced it. The next scan invalidates every prior Region.id.
type Region struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Role       Role    `json:"role"`
	BBox       BBox    `json:"bbox"`
	Href       string  `json:"href,omitempty"`
	Confidence float64 `json:"confidence"`
}

// IsInput reports whether the region accepts typed or selected input.
func (r Region) IsInput() bool {
	switch r.Role {
	case RoleTextbox, RoleTextarea, RoleSelect:
		return true
	default:
		return false
	}
}

// RegionDiff summarizes which labels appeared or disappeared between two
// consecutive scans, each capped at 15 entries per spec.
type RegionDiff struct {
	Appeared    []string `json:"appeared,omitempty"`
	Disappeared []string `json:"disappeared,omitempty"`
}

const maxRegionDiffEntries = 15

// DiffRegionLabels computes a capped RegionDiff between the previous and
// current label sets, preserving current-scan order for "appeared" and
// previous-scan order for "disappeared".
func DiffRegionLabels(previous, current []string) RegionDiff {
	prevSet := make(map[string]struct{}, len(previous))
	for _, l := range previous {
		prevSet[l] = struct{}{}
	}
	curSet := make(map[string]struct{}, len(current))
	for _, l := range current {
		curSet[l] = struct{}{}
	}

	var diff RegionDiff
	for _, l := range current {
		if _, ok := prevSet[l]; !ok {
			if len(diff.Appeared) >= maxRegionDiffEntries {
				continue
			}
			diff.Appeared = append(diff.Appeared, l)
		}
	}
	for _, l := range previous {
		if _, ok := curSet[l]; !ok {
			if len(diff.Disappeared) >= maxRegionDiffEntries {
				continue
			}
			diff.Disappeared = append(diff.Disappeared, l)
		}
	}
	return diff
}
