package browser

// discoveryScript tags every visible, enabled candidate element with a
// scan-scoped data attribute and returns the raw facts internal/catalogue
// needs to derive a Region: role, the label candidates (in priority
// order), bounding box, and href. Label-derivation policy itself lives in
// internal/catalogue, not here.
const discoveryScript = `
(() => {
	const selectors = "button, a[href], input, textarea, select, [role=button], [role=link], [role=checkbox], [role=radio], [role=textbox]";
	const out = [];
	const isVisible = (el) => {
		const style = window.getComputedStyle(el);
		if (style.visibility === 'hidden' || style.display === 'none' || style.opacity === '0') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};
	const isDisabled = (el) => el.disabled === true || el.getAttribute('aria-disabled') === 'true';

	const roleOf = (el) => {
		const explicit = el.getAttribute('role');
		if (explicit) return explicit;
		const tag = el.tagName.toLowerCase();
		if (tag === 'a') return 'link';
		if (tag === 'button') return 'button';
		if (tag === 'select') return 'select';
		if (tag === 'textarea') return 'textarea';
		if (tag === 'input') {
			const t = (el.getAttribute('type') || 'text').toLowerCase();
			if (t === 'checkbox') return 'checkbox';
			if (t === 'radio') return 'radio';
			return 'textbox';
		}
		return 'other';
	};

	const descendantImage = (el) => {
		const img = el.querySelector('img');
		if (!img) return { has: false, alt: '' };
		return { has: true, alt: img.getAttribute('alt') || '' };
	};

	let idx = 0;
	document.querySelectorAll(selectors).forEach((el) => {
		if (!isVisible(el) || isDisabled(el)) return;
		const rect = el.getBoundingClientRect();
		const tagId = 'pilot-scan-' + idx;
		const img = descendantImage(el);
		el.setAttribute('data-pilot-scan-id', tagId);
		out.push({
			tagId: tagId,
			role: roleOf(el),
			ariaLabel: el.getAttribute('aria-label') || '',
			name: el.getAttribute('name') || '',
			placeholder: el.getAttribute('placeholder') || '',
			textContent: (el.textContent || '').trim(),
			hasImage: img.has,
			imageAlt: img.alt,
			href: el.tagName.toLowerCase() === 'a' ? (el.getAttribute('href') || '') : '',
			x: rect.x, y: rect.y, w: rect.width, h: rect.height,
		});
		idx++;
	});
	return out;
})()
`

// RawElement is one candidate interactive element surfaced by a scan,
// before catalogue assigns it an opaque Region ID and derives its label.
type RawElement struct {
	TagID       string  `json:"tagId"`
	Role        string  `json:"role"`
	AriaLabel   string  `json:"ariaLabel"`
	Name        string  `json:"name"`
	Placeholder string  `json:"placeholder"`
	TextContent string  `json:"textContent"`
	HasImage    bool    `json:"hasImage"`
	ImageAlt    string  `json:"imageAlt"`
	Href        string  `json:"href"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	W           float64 `json:"w"`
	H           float64 `json:"h"`
}

// clearScanTagsScript removes every data-pilot-scan-id attribute left over
// from the previous scan, so a stale selector can never resolve silently.
const clearScanTagsScript = `
(() => {
	document.querySelectorAll('[data-pilot-scan-id]').forEach((el) => el.removeAttribute('data-pilot-scan-id'));
})()
`
