package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ErrAssertionFailed is returned when an element is missing or hidden once
// the assertion timeout has elapsed.
var ErrAssertionFailed = errors.New("assertion failed")

const pollInterval = 100 * time.Millisecond

// Locator finds the first matching element on the current page.
type Locator interface {
	// resolve returns a handle to the first match in document order, or ""
	// when nothing matches yet. Callers release the handle.
	resolve(ctx context.Context) (runtime.RemoteObjectID, error)
	String() string
}

// ByRole matches elements by accessible role whose accessible name contains
// name, ignoring case and collapsing whitespace. A heading rendered as
// "Elegant Jewelry<br><span>For Every Moment</span>" matches "Elegant Jewelry".
func ByRole(role, name string) Locator {
	return roleLocator{role: role, name: name}
}

// ByRoleExact is ByRole with a case-sensitive whole-name comparison.
func ByRoleExact(role, name string) Locator {
	return roleLocator{role: role, name: name, exact: true}
}

type roleLocator struct {
	role  string
	name  string
	exact bool
}

func (l roleLocator) String() string {
	if l.exact {
		return fmt.Sprintf("role=%s name=%q exact", l.role, l.name)
	}
	return fmt.Sprintf("role=%s name=%q", l.role, l.name)
}

func (l roleLocator) matches(name string) bool {
	got, want := normalizeSpace(name), normalizeSpace(l.name)
	if l.exact {
		return got == want
	}
	return strings.Contains(lowerASCIIOnly(got), lowerASCIIOnly(want))
}

// resolve queries by role only; names are filtered here because the
// protocol's accessibleName filter is an exact comparison.
func (l roleLocator) resolve(ctx context.Context) (runtime.RemoteObjectID, error) {
	root, err := dom.GetDocument().WithDepth(0).Do(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get document: %w", err)
	}

	nodes, err := accessibility.QueryAXTree().
		WithNodeID(root.NodeID).
		WithRole(l.role).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to query accessibility tree: %w", err)
	}

	for _, n := range nodes {
		if n.Ignored || n.BackendDOMNodeID == 0 || !l.matches(axName(n)) {
			continue
		}
		obj, err := dom.ResolveNode().WithBackendNodeID(n.BackendDOMNodeID).Do(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to resolve node: %w", err)
		}
		return obj.ObjectID, nil
	}

	return "", nil
}

// axName decodes a node's computed name; nodes without one yield "".
func axName(n *accessibility.Node) string {
	if n.Name == nil || len(n.Name.Value) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(n.Name.Value, &name); err != nil {
		return ""
	}
	return name
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// lowerASCIIOnly lowercases A-Z only, matching XPath translate() below.
func lowerASCIIOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// ByText matches the innermost elements whose text content contains
// fragment, ignoring case and collapsing whitespace. Text split across child
// elements, as in "Our <em>Collection</em>", still matches.
func ByText(fragment string) Locator {
	return textLocator{fragment: fragment}
}

type textLocator struct {
	fragment string
}

func (l textLocator) String() string {
	return fmt.Sprintf("text=%q", l.fragment)
}

const (
	upperASCII = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerASCII = "abcdefghijklmnopqrstuvwxyz"
)

// xpath selects body elements whose string value matches and that have no
// matching descendant. script and style are never rendered so they are skipped.
func (l textLocator) xpath() string {
	match := fmt.Sprintf(
		`[not(self::script or self::style)][contains(translate(normalize-space(string(.)), '%s', '%s'), %s)]`,
		upperASCII, lowerASCII, xpathLiteral(lowerASCIIOnly(normalizeSpace(l.fragment))),
	)
	return "//body//*" + match + "[not(.//*" + match + ")]"
}

func (l textLocator) resolve(ctx context.Context) (runtime.RemoteObjectID, error) {
	query, err := json.Marshal(l.xpath())
	if err != nil {
		return "", err
	}

	expr := fmt.Sprintf(
		`document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
		query,
	)

	obj, exc, err := runtime.Evaluate(expr).Do(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate text query: %w", err)
	}
	if exc != nil {
		return "", exc
	}

	// null results carry no object id
	return obj.ObjectID, nil
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

const visibleJS = `function() {
	const style = window.getComputedStyle(this);
	if (style.visibility === 'hidden' || style.display === 'none') {
		return false;
	}
	const rect = this.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
}`

const centerJS = `function() {
	this.scrollIntoView({block: 'center', inline: 'center'});
	const rect = this.getBoundingClientRect();
	return [rect.left + rect.width / 2, rect.top + rect.height / 2];
}`

// callOn runs fn with this bound to the remote object and decodes its result.
func callOn(ctx context.Context, id runtime.RemoteObjectID, fn string, out any) error {
	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(id).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return err
	}
	if exc != nil {
		return exc
	}
	return json.Unmarshal(res.Value, out)
}

func release(ctx context.Context, id runtime.RemoteObjectID) {
	_ = runtime.ReleaseObject(id).Do(ctx)
}

// waitVisible polls until the first match of l is visible. The returned
// handle must be released by the caller.
func waitVisible(ctx context.Context, l Locator, timeout time.Duration) (runtime.RemoteObjectID, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		id, err := l.resolve(pollCtx)
		if err == nil && id != "" {
			var visible bool
			err = callOn(pollCtx, id, visibleJS, &visible)
			if err == nil && visible {
				return id, nil
			}
			release(ctx, id)
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if lastErr != nil && !errors.Is(lastErr, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %s not visible after %s: %v", ErrAssertionFailed, l, timeout, lastErr)
			}
			return "", fmt.Errorf("%w: %s not visible after %s", ErrAssertionFailed, l, timeout)
		case <-ticker.C:
		}
	}
}

func assertVisible(ctx context.Context, l Locator, timeout time.Duration) error {
	id, err := waitVisible(ctx, l, timeout)
	if err != nil {
		return err
	}
	release(ctx, id)
	return nil
}

// click dispatches a real mouse click at the center of the first visible match.
func click(ctx context.Context, l Locator, timeout time.Duration) error {
	id, err := waitVisible(ctx, l, timeout)
	if err != nil {
		return err
	}
	defer release(ctx, id)

	var center []float64
	if err := callOn(ctx, id, centerJS, &center); err != nil {
		return fmt.Errorf("failed to locate %s: %w", l, err)
	}
	if len(center) != 2 {
		return fmt.Errorf("failed to locate %s: unexpected geometry %v", l, center)
	}

	return chromedp.MouseClickXY(center[0], center[1]).Do(ctx)
}
