package browser

import (
	"encoding/base64"
	"fmt"
)

type PageSnapshot struct {
	URL              string
	Title            string
	Tree             string
	ScreenshotBase64 string
}

func encodeScreenshot(buf []byte) string {
	if len(buf) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func treeFromResult(result interface{}) (string, error) {
	tree, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("expected string from js, got %T", result)
	}
	return tree, nil
}

// snapshotExpression evaluates snapshotScript in engines that take a plain expression.
var snapshotExpression = "(" + snapshotScript + ")()"

// snapshotScript tags visible interactive elements with data-ai-id and
// returns an indented text tree of the viewport. The active modal, if any,
// is used as the root.
const snapshotScript = `() => {
  const INTERACTIVE_TAGS = new Set(['a', 'button', 'input', 'textarea', 'select', 'details', 'summary']);
  const INTERACTIVE_ROLES = new Set(['button', 'link', 'checkbox', 'radio', 'menuitem', 'tab', 'textbox', 'combobox', 'option', 'switch']);
  const SKIP_TAGS = new Set(['script', 'style', 'svg', 'path', 'noscript', 'template']);
  const HEADINGS = new Set(['h1', 'h2', 'h3', 'h4', 'h5']);
  const MAX_DEPTH = 20;
  const MAX_TEXT = 100;

  let nextID = 1;
  document.querySelectorAll('[data-ai-id]').forEach(el => el.removeAttribute('data-ai-id'));

  const clean = (text) => {
    const res = (text || '').replace(/\s+/g, ' ').trim();
    return res.length > MAX_TEXT ? res.slice(0, MAX_TEXT) + '...' : res;
  };
  const quote = (value) => '"' + value.replace(/"/g, "'") + '"';
  const roleOf = (el) => ((el.getAttribute && el.getAttribute('role')) || '').toLowerCase();

  const visible = (el) => {
    if (!el || !el.getBoundingClientRect) return false;
    if (el.getAttribute('aria-hidden') === 'true') return false;
    const rect = el.getBoundingClientRect();
    const style = window.getComputedStyle(el);
    if (rect.width <= 0 || rect.height <= 0) return false;
    if (style.visibility === 'hidden' || style.display === 'none' || style.opacity === '0') return false;
    return rect.top < window.innerHeight && rect.bottom > 0 && rect.left < window.innerWidth && rect.right > 0;
  };

  const interactive = (el) => {
    const tabIndex = el.getAttribute('tabindex');
    return INTERACTIVE_TAGS.has(el.tagName.toLowerCase()) ||
      INTERACTIVE_ROLES.has(roleOf(el)) ||
      (tabIndex !== null && tabIndex !== '-1') ||
      el.onclick != null;
  };

  const kindOf = (el) => {
    const tag = el.tagName.toLowerCase();
    const role = roleOf(el);
    if (tag === 'button' || role === 'button') return 'button';
    if (tag === 'a' || role === 'link') return 'link';
    if (tag === 'select' || role === 'combobox') return 'select';
    if (tag === 'input') {
      const type = (el.getAttribute('type') || '').toLowerCase();
      if (type === 'checkbox' || type === 'radio' || type === 'search') return type;
      return 'input';
    }
    return '';
  };

  const inDialog = (el) => {
    for (let cur = el; cur && cur !== document.body; cur = cur.parentElement) {
      const role = roleOf(cur);
      if (role === 'dialog' || role === 'alertdialog' || cur.getAttribute('aria-modal') === 'true') return true;
    }
    return false;
  };

  const activeModal = () => {
    const nodes = document.querySelectorAll('[role="dialog"],[role="alertdialog"],[aria-modal="true"],.modal,.overlay');
    let best = null;
    let bestZ = -Infinity;
    for (const el of nodes) {
      if (!visible(el)) continue;
      const z = parseInt(window.getComputedStyle(el).zIndex || '0', 10) || 0;
      if (z >= bestZ) {
        bestZ = z;
        best = el;
      }
    }
    return best;
  };

  const describe = (el) => {
    const tag = el.tagName.toLowerCase();
    let label = clean(el.innerText || el.textContent) ||
      clean(el.getAttribute('aria-label')) ||
      clean(el.getAttribute('title'));
    if (!label && (tag === 'input' || tag === 'textarea')) label = clean(el.getAttribute('placeholder'));

    const parts = ['<' + tag];
    if (label) parts.push('label=' + quote(label));
    const kind = kindOf(el);
    if (kind) parts.push('kind="' + kind + '"');
    if (inDialog(el)) parts.push('context="dialog"');
    if (tag === 'input' || tag === 'textarea') {
      const value = clean(el.value);
      if (value) parts.push('value=' + quote(value));
    }
    return parts.join(' ') + '>';
  };

  const walk = (node, depth) => {
    if (!node || depth > MAX_DEPTH) return '';
    const indent = '  '.repeat(depth);

    if (node.nodeType === Node.TEXT_NODE) {
      const text = clean(node.textContent);
      return text.length > 2 ? indent + text + '\n' : '';
    }
    if (node.nodeType !== Node.ELEMENT_NODE) return '';

    const tag = node.tagName.toLowerCase();
    if (SKIP_TAGS.has(tag) || !visible(node)) return '';

    let out = '';
    if (interactive(node)) {
      const id = nextID++;
      node.setAttribute('data-ai-id', String(id));
      out += indent + '[' + id + '] ' + describe(node) + '\n';
    } else if (HEADINGS.has(tag)) {
      out += indent + '<' + tag + '> ' + clean(node.innerText) + '\n';
    }
    for (const child of node.childNodes) {
      out += walk(child, depth + 1);
    }
    return out;
  };

  const modal = activeModal();
  return (modal ? '=== ACTIVE DIALOG ===\n' : '') + walk(modal || document.body, 0);
}`
