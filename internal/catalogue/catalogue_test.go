package catalogue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/browser"
	"github.com/kestrel-run/pilot/internal/catalogue"
)

// fakeGateway is a minimal browser.Gateway stub whose Discover call
// returns a fixed set of raw elements.
type fakeGateway struct {
	browser.Gateway
	elements []browser.RawElement
}

func (f *fakeGateway) Discover(ctx context.Context) ([]browser.RawElement, error) {
	return f.elements, nil
}

func TestScanFiltersTooSmallElements(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{elements: []browser.RawElement{
		{TagID: "pilot-scan-0", Role: "button", TextContent: "Tiny", W: 2, H: 2},
		{TagID: "pilot-scan-1", Role: "button", TextContent: "Big enough", W: 20, H: 20},
	}}

	cat := catalogue.New()
	regions, err := cat.Scan(context.Background(), gw)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "Big enough", regions[0].Label)
}

func TestScanDropsElementsWithEmptyLabel(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{elements: []browser.RawElement{
		{TagID: "pilot-scan-0", Role: "other", W: 20, H: 20},
	}}

	cat := catalogue.New()
	regions, err := cat.Scan(context.Background(), gw)
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestScanAssignsSessionUniqueIDsAndElementPrefix(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{elements: []browser.RawElement{
		{TagID: "pilot-scan-0", Role: "button", TextContent: "First", W: 20, H: 20},
		{TagID: "pilot-scan-1", Role: "button", TextContent: "Second", W: 20, H: 20},
	}}

	cat := catalogue.New()
	regions, err := cat.Scan(context.Background(), gw)
	require.NoError(t, err)
	require.Len(t, regions, 2)

	seen := make(map[string]bool)
	for _, r := range regions {
		assert.True(t, len(r.ID) > len("element-"))
		assert.Equal(t, "element-", r.ID[:len("element-")])
		assert.False(t, seen[r.ID], "region id must be unique within a scan")
		seen[r.ID] = true
	}
}

func TestScanUnknownRoleFallsBackToOther(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{elements: []browser.RawElement{
		{TagID: "pilot-scan-0", Role: "dialog", TextContent: "A dialog", W: 20, H: 20},
	}}

	cat := catalogue.New()
	regions, err := cat.Scan(context.Background(), gw)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, schemas.RoleOther, regions[0].Role)
}

func TestResolveStaleRegionIDReturnsStaleElementError(t *testing.T) {
	t.Parallel()
	cat := catalogue.New()

	_, err := cat.Resolve(browser.ElementTarget{RegionID: "element-doesnotexist"})
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrStaleElement)
}

func TestResolvePassesThroughTargetsWithoutRegionID(t *testing.T) {
	t.Parallel()
	cat := catalogue.New()
	target := browser.ElementTarget{Selector: "#submit"}
	resolved, err := cat.Resolve(target)
	require.NoError(t, err)
	assert.Equal(t, target, resolved)
}

func TestResolveByRoleAndNameFindsMatchingElement(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{elements: []browser.RawElement{
		{TagID: "pilot-scan-0", Role: "button", TextContent: "Cancel", W: 20, H: 20},
		{TagID: "pilot-scan-1", Role: "button", TextContent: "Submit", W: 20, H: 20},
	}}
	cat := catalogue.New()
	_, err := cat.Scan(context.Background(), gw)
	require.NoError(t, err)

	resolved, err := cat.Resolve(browser.ElementTarget{Role: schemas.RoleButton, Name: "submit"})
	require.NoError(t, err)
	assert.NotEmpty(t, resolved.RegionID)
	assert.NotEmpty(t, resolved.ResolvedSelector)
}

func TestResolveByRoleAndNameNoMatchReturnsStaleElementError(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{elements: []browser.RawElement{
		{TagID: "pilot-scan-0", Role: "button", TextContent: "Cancel", W: 20, H: 20},
	}}
	cat := catalogue.New()
	_, err := cat.Scan(context.Background(), gw)
	require.NoError(t, err)

	_, err = cat.Resolve(browser.ElementTarget{Role: schemas.RoleButton, Name: "Submit"})
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrStaleElement)
}

func TestResolveByRoleAndNameIgnoresRoleMismatch(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{elements: []browser.RawElement{
		{TagID: "pilot-scan-0", Role: "link", TextContent: "Submit", W: 20, H: 20},
	}}
	cat := catalogue.New()
	_, err := cat.Scan(context.Background(), gw)
	require.NoError(t, err)

	_, err = cat.Resolve(browser.ElementTarget{Role: schemas.RoleButton, Name: "Submit"})
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrStaleElement)
}

func TestScanInvalidatesPreviousScanRegionIDs(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{elements: []browser.RawElement{
		{TagID: "pilot-scan-0", Role: "button", TextContent: "Once", W: 20, H: 20},
	}}
	cat := catalogue.New()

	regions, err := cat.Scan(context.Background(), gw)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	firstID := regions[0].ID

	_, err = cat.Scan(context.Background(), gw)
	require.NoError(t, err)

	_, err = cat.Resolve(browser.ElementTarget{RegionID: firstID})
	assert.ErrorIs(t, err, schemas.ErrStaleElement)
}

func TestLabelReturnsEmptyForUnknownRegion(t *testing.T) {
	t.Parallel()
	cat := catalogue.New()
	assert.Equal(t, "", cat.Label("element-unknown"))
}

func TestImageFallbackLabel(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{elements: []browser.RawElement{
		{TagID: "pilot-scan-0", Role: "link", HasImage: true, ImageAlt: "logo", W: 20, H: 20},
		{TagID: "pilot-scan-1", Role: "link", HasImage: true, ImageAlt: "", W: 20, H: 20},
	}}
	cat := catalogue.New()
	regions, err := cat.Scan(context.Background(), gw)
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "Image: logo", regions[0].Label)
	assert.Equal(t, "Unlabeled Image", regions[1].Label)
}
