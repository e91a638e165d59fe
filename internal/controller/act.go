package controller

import (
	"context"
	"fmt"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/browser"
)

// dispatch maps an Action to a BrowserGateway call, per SPEC_FULL §4.6
// step 7. DONE/ASK_USER/CONFIRM never reach here — RunLoop returns before
// calling dispatch for any controller-owned action.
func (c *Controller) dispatch(ctx context.Context, action schemas.Action) error {
	switch action.Type {
	case schemas.ActionVisionClick:
		target, err := c.resolveTarget(action)
		if err != nil {
			return err
		}
		return c.gw.Click(ctx, target)

	case schemas.ActionDOMClick:
		target, err := c.resolveTarget(action)
		if err != nil {
			return err
		}
		return c.gw.DirectClick(ctx, target)

	case schemas.ActionVisionFill:
		target, err := c.resolveTarget(action)
		if err != nil {
			return err
		}
		return c.gw.Fill(ctx, target, action.Value)

	case schemas.ActionDOMFill:
		target, err := c.resolveTarget(action)
		if err != nil {
			return err
		}
		return c.gw.DirectFill(ctx, target, action.Value)

	case schemas.ActionKeyPress:
		target, err := c.resolveTarget(action)
		if err != nil {
			return err
		}
		return c.gw.KeyPress(ctx, target, action.KeyName)

	case schemas.ActionScroll:
		if err := c.gw.Scroll(ctx, action.Direction, action.Amount); err != nil {
			return err
		}
		return c.gw.Wait(ctx, scrollStabilizeMs, "")

	case schemas.ActionWait:
		duration := action.DurationMs
		if duration == 0 && action.Until == "" {
			duration = 1000
		}
		return c.gw.Wait(ctx, duration, action.Until)

	default:
		return fmt.Errorf("controller: %s is controller-owned and must never reach ACT", action.Type)
	}
}

// resolveTarget turns an Action's regionId/selector/role+name into a
// dispatchable browser.ElementTarget via the catalogue.
func (c *Controller) resolveTarget(action schemas.Action) (browser.ElementTarget, error) {
	target := browser.ElementTarget{
		RegionID: action.RegionID,
		Selector: action.Selector,
		Role:     action.Role,
		Name:     action.Name,
	}
	return c.cat.Resolve(target)
}
