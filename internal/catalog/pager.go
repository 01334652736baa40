package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultPageSize is the page capacity used when AppendOnlyPager.PageSize is
// not set.
const DefaultPageSize = 1000

// AppendOnlyPager appends items to the newest page, page{N}.json, until it
// holds PageSize entries and then starts page{N+1}.json. A commit larger than
// the room left on the current page spans several pages. Older pages are
// never rewritten.
type AppendOnlyPager struct {
	PageSize int
}

var _ PagePolicy = (*AppendOnlyPager)(nil)

// PageName returns the name of page n relative to the storage base.
func PageName(n int) string { return fmt.Sprintf("page%d.json", n) }

func (p *AppendOnlyPager) size() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	return p.PageSize
}

// SavePages implements PagePolicy.
func (p *AppendOnlyPager) SavePages(ctx context.Context, w *Writer, commitID string, ts time.Time, items map[string]Summary) (map[string]Summary, error) {
	size := p.size()
	root, err := w.LoadIndex(ctx, w.RootURI())
	if err != nil {
		return nil, err
	}
	num := latestPage(w, root)
	current := map[string]Summary{}
	if num < 0 {
		num = 0
	} else {
		if current, err = w.LoadIndex(ctx, w.Storage().ResolveURI(PageName(num))); err != nil {
			return nil, err
		}
	}

	pending := make([]string, 0, len(items))
	for addr := range items {
		pending = append(pending, addr)
	}
	sort.Strings(pending)

	pages := map[string]Summary{}
	for len(pending) > 0 {
		if len(current) >= size {
			num++
			current = map[string]Summary{}
		}
		take := size - len(current)
		if take > len(pending) {
			take = len(pending)
		}
		for _, addr := range pending[:take] {
			current[addr] = items[addr]
		}
		pending = pending[take:]

		addr := w.Storage().ResolveURI(PageName(num))
		if err := w.SaveIndex(ctx, addr, TypePage, commitID, ts, current, nil); err != nil {
			return nil, err
		}
		pages[addr] = Summary{Type: TypePage, CommitID: commitID, CommitTimestamp: ts, Count: IntPtr(len(current))}
	}
	return pages, nil
}

// latestPage returns the highest page number referenced by the root, or -1.
func latestPage(w *Writer, root map[string]Summary) int {
	base := w.Storage().BaseAddress()
	latest := -1
	for addr := range root {
		name := strings.TrimPrefix(addr, base)
		if !strings.HasPrefix(name, "page") || !strings.HasSuffix(name, ".json") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "page"), ".json"))
		if err != nil || n < 0 {
			continue
		}
		if n > latest {
			latest = n
		}
	}
	return latest
}
