package browser

// snapshotJS flags hidden elements and serialises the document with its
// open shadow roots as declarative templates.
const snapshotJS = `() => {
	const roots = [];
	const visit = (root) => {
		for (const el of root.querySelectorAll('*')) {
			const cs = getComputedStyle(el);
			if (cs.display === 'none' || cs.visibility === 'hidden' ||
				cs.visibility === 'collapse' || cs.opacity === '0') {
				el.setAttribute('` + HiddenAttr + `', '');
			}
			if (el.shadowRoot) {
				roots.push(el.shadowRoot);
				visit(el.shadowRoot);
			}
		}
	};
	visit(document);
	const html = document.documentElement;
	if (typeof html.getHTML === 'function') {
		return '<!DOCTYPE html><html>' + html.getHTML({shadowRoots: roots}) + '</html>';
	}
	return '<!DOCTYPE html>' + html.outerHTML;
}`
