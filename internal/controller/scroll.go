package controller

import (
	"context"
	"math"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/browser"
	"github.com/kestrel-run/pilot/internal/oracle"
)

const scrollStabilizeMs = 400

// autoScrollGate implements SPEC_FULL §4.6 step 3. It runs at most one
// scroll (or one semantic check) per RunLoop iteration; scrolled=true
// tells the caller to re-enter the outer loop (re-OBSERVE) rather than
// falling through to DECIDE.
func (c *Controller) autoScrollGate(ctx context.Context, task string, page browser.PageState, regions []schemas.Region) (scrolled bool, err error) {
	scroll := &c.state.Scroll
	if scroll.ContentVisible || scroll.BottomReached || scroll.ScrollCount >= scroll.MaxAutoScrolls {
		return false, nil
	}

	if err := c.semanticCheckLimiter.Wait(ctx); err != nil {
		return false, err
	}
	objective := oracle.CurrentStepObjective(task)
	visible := c.oracle.IsContentSemanticallyVisible(ctx, objective, page.Text, labelsFromRegions(regions))
	if visible {
		scroll.ContentVisible = true
		return false, nil
	}

	scrollY, scrollHeight, err := c.gw.ScrollGeometry(ctx)
	if err != nil {
		return false, err
	}
	pageUnscrollable := scrollY == 0 && math.Abs(scrollHeight-float64(c.viewportHeight)) < 10

	if scroll.ScrollCount > 0 {
		scrollYStuck := scrollY == scroll.LastScrollY
		heightStuck := scrollHeight == scroll.LastScrollHeight
		atDocumentBottom := scrollY+float64(c.viewportHeight) >= scrollHeight-5

		switch {
		case scrollYStuck && heightStuck && !pageUnscrollable:
			scroll.BottomReached = true
		case atDocumentBottom && heightStuck && !pageUnscrollable:
			scroll.BottomReached = true
		case pageUnscrollable && scroll.ScrollCount >= scroll.MaxAutoScrolls:
			scroll.BottomReached = true
		}
		if scroll.BottomReached {
			return false, nil
		}
	}

	if err := c.gw.Scroll(ctx, schemas.ScrollDown, 600); err != nil {
		return false, err
	}
	if err := c.gw.Wait(ctx, scrollStabilizeMs, schemas.WaitUntilNetworkIdle); err != nil {
		return false, err
	}

	newScrollY, newScrollHeight, err := c.gw.ScrollGeometry(ctx)
	if err != nil {
		return false, err
	}
	scroll.LastScrollY = newScrollY
	scroll.LastScrollHeight = newScrollHeight
	scroll.ScrollCount++

	scrollAction := schemas.Action{Type: schemas.ActionScroll, Direction: schemas.ScrollDown, Amount: 600}
	outcome := schemas.ComputeOutcome(page.URL, page.URL, page.Title, page.Title, page.Text, page.Text)
	c.state.LastAction = &scrollAction
	c.state.LastOutcome = &outcome

	return true, nil
}
