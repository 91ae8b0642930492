package domain

import "time"

// Template is the fixed content sent when a subscriber leaves a stage.
// Text may contain a {name} placeholder substituted at delivery time.
type Template struct {
	Text              string
	ParseMode         string
	DisableWebPreview bool
}

// Stage is one step in the ordered funnel sequence.
//
// MinDwell is the minimum time a subscriber must spend at this stage before
// becoming eligible to leave it. The terminal stage carries no template and
// a zero dwell; subscribers there never transition again.
type Stage struct {
	Index    int
	MinDwell time.Duration
	Template Template
}

// Terminal reports whether the stage has no outgoing transition.
func (s Stage) Terminal() bool {
	return s.Template.Text == ""
}
