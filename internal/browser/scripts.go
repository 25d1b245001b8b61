// internal/browser/scripts.go
package browser

import (
	"fmt"

	"github.com/xkilldash9x/anchorpoint/api/schemas"
)

// captureScriptTemplate returns {snapshot} with a LayoutSnapshot-shaped
// object, {missing} naming the selector that matched nothing, or
// {unsupported, reason} when a selector hits <html> or host and target are
// the same element. Every element on the host and target offset parent chains
// is recorded once.
const captureScriptTemplate = `
(function(hostSel, targetSel, hostID, targetID) {
	const host = document.querySelector(hostSel);
	if (!host) return { missing: hostSel };
	const target = document.querySelector(targetSel);
	if (!target) return { missing: targetSel };

	const docEl = document.documentElement;
	if (host === docEl) return { unsupported: hostSel, reason: 'matches the document element' };
	if (target === docEl) return { unsupported: targetSel, reason: 'matches the document element' };
	if (host === target) return { unsupported: targetSel, reason: 'resolves to the host element' };
	const num = (v) => (typeof v === 'number' && isFinite(v)) ? v : 0;
	const ids = new Map();
	const elements = [];
	let seq = 0;

	function styleOf(el) {
		const style = {};
		if (typeof window.getComputedStyle === 'function') {
			style.computed = { position: window.getComputedStyle(el).position || '' };
		}
		if (el.currentStyle) {
			style.current = { position: el.currentStyle.position || '' };
		}
		if (el.style) {
			style.inline = { position: el.style.position || '' };
		}
		return style;
	}

	function read(el, id) {
		const entry = {
			id: id,
			offsetWidth: num(el.offsetWidth),
			offsetHeight: num(el.offsetHeight),
			clientTop: num(el.clientTop),
			clientLeft: num(el.clientLeft),
			scrollTop: num(el.scrollTop),
			scrollLeft: num(el.scrollLeft),
			style: styleOf(el)
		};
		if (typeof el.getBoundingClientRect === 'function') {
			const r = el.getBoundingClientRect();
			entry.rect = { top: r.top, left: r.left, width: r.width, height: r.height };
		}
		return entry;
	}

	function visit(el) {
		if (el === docEl) return 'html';
		if (ids.has(el)) return ids.get(el);
		const id = el === host ? hostID : (el === target ? targetID : 'e' + (seq++));
		ids.set(el, id);
		const entry = read(el, id);
		elements.push(entry);
		if (el.offsetParent) {
			entry.offsetParent = visit(el.offsetParent);
		}
		return id;
	}

	visit(host);
	visit(target);

	return { snapshot: {
		url: location.href,
		window: {
			pageXOffset: num(window.pageXOffset),
			pageYOffset: num(window.pageYOffset),
			computedStyle: typeof window.getComputedStyle === 'function'
		},
		documentElement: read(docEl, 'html'),
		elements: elements
	} };
})(%s, %s, %s, %s);
`

const applyScriptTemplate = `
(function(sel, top, left) {
	const el = document.querySelector(sel);
	if (!el) return { missing: sel };
	el.style.position = 'absolute';
	el.style.top = top + 'px';
	el.style.left = left + 'px';
	return { applied: true };
})(%s, %s, %s);
`

func captureScript(hostSelector, targetSelector string) string {
	return fmt.Sprintf(captureScriptTemplate,
		jsonEncode(hostSelector), jsonEncode(targetSelector), jsonEncode(HostID), jsonEncode(TargetID))
}

func applyScript(targetSelector string, offset schemas.Offset) string {
	return fmt.Sprintf(applyScriptTemplate,
		jsonEncode(targetSelector), jsonEncode(offset.Top), jsonEncode(offset.Left))
}
