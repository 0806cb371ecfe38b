// internal/dataroom/scripts.go
package dataroom

// enumerateScript walks the React fiber tree above each document card. The
// SpaceFolder prop found there holds contents.nodes (documents) and the
// folder's ancestors, which give each document its section path. When no
// folder prop exists anywhere, a simpler per-card SpaceDocument read runs
// instead.
const enumerateScript = `(() => {
	const cards = document.querySelectorAll('[class*="index-module__card"]');
	const results = [];
	const seenHrefs = new Set();
	const processedFolders = new Set();

	function collectFromFolder(folder, parentPath) {
		if (!folder || processedFolders.has(folder.databaseId)) return;
		processedFolders.add(folder.databaseId);

		const isHome = folder.ancestors
			&& folder.ancestors.nodes
			&& folder.ancestors.nodes.length === 0;
		const folderPath = isHome
			? parentPath
			: (parentPath ? parentPath + '/' + folder.name : folder.name);

		if (folder.contents && folder.contents.nodes) {
			for (const node of folder.contents.nodes) {
				if (node.__typename === 'SpaceDocument'
					&& node.href && node.name
					&& !seenHrefs.has(node.href)) {
					seenHrefs.add(node.href);
					results.push({name: node.name, href: node.href, section: folderPath});
				}
			}
		}
	}

	function fiberOf(card) {
		const key = Object.keys(card).find(
			k => k.startsWith('__reactFiber$') || k.startsWith('__reactInternalInstance$'));
		return key ? card[key] : null;
	}

	for (const card of cards) {
		let fiber = fiberOf(card);
		for (let i = 0; i < 30 && fiber; i++) {
			if (fiber.memoizedProps
				&& fiber.memoizedProps.folder
				&& fiber.memoizedProps.folder.__typename === 'SpaceFolder') {
				collectFromFolder(fiber.memoizedProps.folder, '');
				break;
			}
			fiber = fiber.return;
		}
	}

	if (results.length === 0) {
		for (const card of cards) {
			let fiber = fiberOf(card);
			for (let i = 0; i < 20 && fiber; i++) {
				if (fiber.memoizedProps
					&& fiber.memoizedProps.href
					&& fiber.memoizedProps.name
					&& fiber.memoizedProps.type === 'SpaceDocument') {
					const href = fiber.memoizedProps.href;
					if (!seenHrefs.has(href)) {
						seenHrefs.add(href);
						results.push({name: fiber.memoizedProps.name, href: href, section: ''});
					}
					break;
				}
				fiber = fiber.return;
			}
		}
	}

	return results;
})()`

// titleScript prefers headings, then falls back to the first substantial
// body line after boilerplate is filtered out.
const titleScript = `(() => {
	for (const sel of ['h1', 'h2', '[class*="spaceName"]']) {
		const el = document.querySelector(sel);
		if (el) {
			const t = el.innerText.trim();
			if (t && t !== 'DocSend' && t.length > 2) return t;
		}
	}
	const body = document.body.innerText || '';
	const lines = body.split('\n')
		.map(l => l.trim())
		.filter(l => l.length > 3
			&& l !== 'DocSend'
			&& l !== 'Create login'
			&& !l.includes('Privacy')
			&& !l.includes('Cookies'));
	return lines.length ? lines[0] : '';
})()`

// bulkDownloadScript checks for a visible download control anywhere on the
// landing page.
const bulkDownloadScript = `(() => {
	const selectors = [
		'a[href*="download"]',
		'button[aria-label*="ownload"]',
		'[data-testid*="download"]',
		'[class*="download"]',
	];
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (el) {
			const style = getComputedStyle(el);
			if (style.display !== 'none' && style.visibility !== 'hidden') return true;
		}
	}
	return false;
})()`
