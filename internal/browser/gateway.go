// Package browser implements the BrowserGateway: a chromedp-backed engine
// binding that executes the Action grammar and reports the page state the
// control loop needs to observe.
package browser

import (
	"context"

	"github.com/kestrel-run/pilot/api/schemas"
)

// PageState is a snapshot of the observable page used by OBSERVE and VERIFY.
type PageState struct {
	URL   string
	Title string
	Text  string
}

// Gateway is the engine-agnostic surface the controller drives. A single
// concrete implementation (chromedp) backs it; the interface exists so the
// control loop, guardrails, and verifier never import chromedp directly.
type Gateway interface {
	// Navigate loads url and waits for the page to stabilize.
	Navigate(ctx context.Context, url string) error

	// Snapshot returns the current URL, title, and a normalised text
	// extract, used for Outcome comparison.
	Snapshot(ctx context.Context) (PageState, error)

	// Discover runs the region-discovery script and returns every
	// candidate interactive element on the current page. Turning these
	// raw elements into catalogued Regions is internal/catalogue's job.
	Discover(ctx context.Context) ([]RawElement, error)

	// Click resolves a region/selector/role+name target to a concrete
	// element and performs a physically-simulated cursor-physics click on
	// it (VISION_CLICK).
	Click(ctx context.Context, target ElementTarget) error

	// Fill resolves a target and performs a physically-simulated
	// cursor-physics fill on it, clearing any existing content first
	// (VISION_FILL).
	Fill(ctx context.Context, target ElementTarget, value string) error

	// DirectClick resolves a target and clicks it directly, with no
	// cursor movement (DOM_CLICK).
	DirectClick(ctx context.Context, target ElementTarget) error

	// DirectFill resolves a target and types value into it directly, with
	// no cursor movement, clearing any existing content first (DOM_FILL).
	DirectFill(ctx context.Context, target ElementTarget, value string) error

	// KeyPress sends a single named key (e.g. "Enter", "Escape"). When
	// target addresses an element, the element is focused first; an
	// empty target sends the key page-level, to whatever already has
	// focus.
	KeyPress(ctx context.Context, target ElementTarget, key string) error

	// Scroll scrolls the viewport by amount pixels in direction; amount
	// of 0 means one viewport height.
	Scroll(ctx context.Context, direction schemas.ScrollDirection, amount int) error

	// ScrollGeometry reports the values the auto-scroll gate needs:
	// current scrollY and the page's scrollHeight.
	ScrollGeometry(ctx context.Context) (scrollY, scrollHeight float64, err error)

	// Wait blocks for duration milliseconds (1000 when duration is 0 or
	// less). When until is networkidle it waits for the page to stabilize
	// instead; the load and domcontentloaded values are not waited on and
	// fall back to the duration.
	Wait(ctx context.Context, duration int, until schemas.WaitUntil) error

	// Close releases the underlying browser session.
	Close(ctx context.Context) error
}

// ElementTarget identifies one of the three ways an Action may address an
// element: by catalogue region ID, raw CSS selector, or role+accessible
// name. Exactly how these resolve to a DOM node is catalogue's job; Gateway
// only receives the already-resolved form from internal/catalogue.
type ElementTarget struct {
	RegionID string
	Selector string
	Role     schemas.Role
	Name     string

	// ResolvedSelector is set by internal/catalogue once a RegionID or
	// role+name pair has been turned into a concrete CSS path.
	ResolvedSelector string
	// BBox is the element's last-known bounding box, used to compute the
	// click point for cursor physics.
	BBox schemas.BBox
}
