package funnel

import (
	"fmt"
	"time"

	"github.com/spec-kit/funnel-bot/internal/config"
	"github.com/spec-kit/funnel-bot/internal/domain"
)

// Catalog is the fixed ordered list of funnel stages. Each non-terminal stage
// carries the dwell threshold a subscriber must satisfy before leaving it and
// the content sent on the way out. The final entry is the terminal stage.
type Catalog struct {
	stages []domain.Stage
}

// NewCatalog validates and wraps an ordered stage list. Indexes must be
// contiguous from 0 and only the last stage may be terminal.
func NewCatalog(stages []domain.Stage) (Catalog, error) {
	if len(stages) < 2 {
		return Catalog{}, fmt.Errorf("catalog needs at least one transition, got %d stages", len(stages))
	}
	for i, stage := range stages {
		if stage.Index != i {
			return Catalog{}, fmt.Errorf("stage at position %d has index %d", i, stage.Index)
		}
		if i < len(stages)-1 && stage.Terminal() {
			return Catalog{}, fmt.Errorf("stage %d has no template but is not last", i)
		}
		if i < len(stages)-1 && stage.MinDwell <= 0 {
			return Catalog{}, fmt.Errorf("stage %d has non-positive dwell", i)
		}
	}
	if !stages[len(stages)-1].Terminal() {
		return Catalog{}, fmt.Errorf("last stage must be terminal")
	}
	return Catalog{stages: stages}, nil
}

// DefaultCatalog builds the catalog from configured dwell thresholds, keeping
// the original three-message sequence when configured with three stages and
// falling back to a generic follow-up for any extra ones.
func DefaultCatalog(cfg config.FunnelConfig, questionsLink string) (Catalog, error) {
	stages := make([]domain.Stage, 0, len(cfg.StageDwellHours)+1)
	for i, hours := range cfg.StageDwellHours {
		stages = append(stages, domain.Stage{
			Index:    i,
			MinDwell: time.Duration(hours) * time.Hour,
			Template: stageTemplate(i, questionsLink),
		})
	}
	stages = append(stages, domain.Stage{Index: len(cfg.StageDwellHours)})
	return NewCatalog(stages)
}

// Len returns the number of stages including the terminal one.
func (c Catalog) Len() int {
	return len(c.stages)
}

// Terminal returns the index of the terminal stage.
func (c Catalog) Terminal() int {
	return len(c.stages) - 1
}

// Stage returns the stage at the given index.
func (c Catalog) Stage(index int) (domain.Stage, bool) {
	if index < 0 || index >= len(c.stages) {
		return domain.Stage{}, false
	}
	return c.stages[index], true
}

// StageName labels a stage for reporting.
func (c Catalog) StageName(index int) string {
	switch {
	case index == c.Terminal():
		return "completed"
	case index == 0:
		return "joined"
	case index > 0 && index < c.Terminal():
		return fmt.Sprintf("follow-up %d", index)
	default:
		return "unknown"
	}
}

func stageTemplate(index int, questionsLink string) domain.Template {
	base := domain.Template{ParseMode: "Markdown", DisableWebPreview: true}
	switch index {
	case 0:
		base.Text = dayOneText
	case 1:
		base.Text = fmt.Sprintf(dayTwoText, questionsLink)
	case 2:
		base.Text = dayThreeText
	default:
		base.Text = genericFollowUpText
	}
	return base
}

const dayOneText = `Hi {name}!

*Welcome to the community.* You joined yesterday, so here are a few tips to get the most out of it:

*Getting started*
- Read the pinned messages
- Follow the discussions shared by members
- Take your time, there is no rush

*Useful links*
- [Beginner guide](https://example.com/guide)
- [Getting started checklist](https://example.com/checklist)

Have a question? Just ask in the group!`

const dayTwoText = `Hey {name}!

*How are the first two days treating you?*

A few ways to get more involved:

1. Comment on discussions and share your questions
2. Set aside 30 minutes a day to explore the resources
3. Check out the [starter course](https://example.com/course)

For specific questions we have a dedicated group:
%s

Consistency is what matters most. Keep going!`

const dayThreeText = `{name}, three days in!

*Nice work sticking around.* Time for the next step:

- Start contributing your own ideas to the group
- Keep notes on what you learn
- Grab the [member toolkit](https://example.com/toolkit)

The members who get the most out of this community are the ones who never stop learning. We are here if you need anything!`

const genericFollowUpText = `Hi {name}!

Just checking in. You have been with us for a while now, and we would love to hear how it is going. Drop a message in the group any time!`
