// Package catalogue turns a raw browser scan into a Region[] snapshot and
// resolves an Action's regionId/selector/role+name target back to a
// concrete, dispatchable selector — the ElementCatalogue (Regionizer) from
// SPEC_FULL §4.2.
package catalogue

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/browser"
)

const (
	minDimension  = 5.0
	maxLabelChars = 100
)

// entry is what ElementStore keeps per Region.id: enough to resolve a
// later Action back to a concrete selector.
type entry struct {
	selector string
	bbox     schemas.BBox
	role     schemas.Role
	label    string
}

// Catalogue owns the current scan's ElementStore. A new Scan call replaces
// the store atomically; any regionId from an earlier scan then resolves to
// schemas.ErrStaleElement (I1, I2).
type Catalogue struct {
	mu    sync.RWMutex
	store map[string]entry
}

// New returns an empty Catalogue.
func New() *Catalogue {
	return &Catalogue{store: make(map[string]entry)}
}

// Scan runs a discovery pass via gw, derives labels, assigns opaque
// session-unique region IDs, and atomically swaps in a fresh ElementStore.
// Returns the Region[] snapshot (P1: non-empty label, bbox dims ≥ 5, a
// session-unique id for every emitted Region).
func (c *Catalogue) Scan(ctx context.Context, gw browser.Gateway) ([]schemas.Region, error) {
	raw, err := gw.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalogue scan: %w", err)
	}

	store := make(map[string]entry, len(raw))
	regions := make([]schemas.Region, 0, len(raw))

	for _, el := range raw {
		bbox := schemas.BBox{X: el.X, Y: el.Y, W: el.W, H: el.H}
		if bbox.MinDimension() < minDimension {
			continue
		}

		label := deriveLabel(el)
		if label == "" {
			continue
		}

		role := schemas.Role(el.Role)
		switch role {
		case schemas.RoleButton, schemas.RoleLink, schemas.RoleTextbox, schemas.RoleCheckbox,
			schemas.RoleRadio, schemas.RoleTextarea, schemas.RoleSelect:
		default:
			role = schemas.RoleOther
		}

		id := "element-" + randomHex8()
		selector := fmt.Sprintf(`[data-pilot-scan-id="%s"]`, el.TagID)

		store[id] = entry{selector: selector, bbox: bbox, role: role, label: label}
		regions = append(regions, schemas.Region{
			ID:         id,
			Label:      label,
			Role:       role,
			BBox:       bbox,
			Href:       el.Href,
			Confidence: 1.0,
		})
	}

	c.mu.Lock()
	c.store = store
	c.mu.Unlock()

	return regions, nil
}

// Resolve turns an Action's target spec into a concrete browser.ElementTarget.
// A regionId from any scan but the current one returns ErrStaleElement. A
// role+name target (no regionId, no selector) is resolved by scanning the
// current store for a role match with a case-insensitive label match —
// the "by-role" dispatch path.
func (c *Catalogue) Resolve(target browser.ElementTarget) (browser.ElementTarget, error) {
	if target.RegionID != "" {
		c.mu.RLock()
		e, ok := c.store[target.RegionID]
		c.mu.RUnlock()
		if !ok {
			return browser.ElementTarget{}, fmt.Errorf("%w: regionId %q not in current scan", schemas.ErrStaleElement, target.RegionID)
		}
		target.ResolvedSelector = e.selector
		target.BBox = e.bbox
		return target, nil
	}

	if target.Selector != "" {
		return target, nil
	}

	if target.Role != "" && target.Name != "" {
		c.mu.RLock()
		defer c.mu.RUnlock()
		for id, e := range c.store {
			if e.role == target.Role && strings.EqualFold(e.label, target.Name) {
				target.RegionID = id
				target.ResolvedSelector = e.selector
				target.BBox = e.bbox
				return target, nil
			}
		}
		return browser.ElementTarget{}, fmt.Errorf("%w: no element with role %q and name %q in current scan", schemas.ErrStaleElement, target.Role, target.Name)
	}

	return target, nil
}

// Label returns the catalogued label for a regionId, or "" if unknown —
// used by guardrails and oscillation-key resolution.
func (c *Catalogue) Label(regionID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[regionID].label
}

// CurrentLabels returns every label in the current scan, in no particular
// order, used for RegionDiff.
func (c *Catalogue) CurrentLabels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	labels := make([]string, 0, len(c.store))
	for _, e := range c.store {
		labels = append(labels, e.label)
	}
	return labels
}
