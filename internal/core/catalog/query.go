package catalog

import (
	"cmp"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Filter returns the items matching keep, in order. The input is not modified.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// SortBy returns a stably sorted copy ordered by key.
func SortBy[T any, K cmp.Ordered](items []T, key func(T) K, desc bool) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		c := cmp.Compare(key(a), key(b))
		if desc {
			return -c
		}
		return c
	})
	return out
}

type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }

// Paginate returns the 1-based page of items. Out-of-range pages are clamped
// and sizes outside 1..MaxPageSize fall back to DefaultPageSize.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	page = max(1, min(page, pages))

	start := (page - 1) * size
	end := min(start+size, total)
	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
	}
}

// OrderQuery is the orders table state carried in the query string.
type OrderQuery struct {
	Search   string
	Status   OrderStatus
	Sort     string
	Desc     bool
	Page     int
	PageSize int
}

var orderSortKeys = map[string]bool{"date": true, "id": true, "site": true, "status": true, "quantity": true}

func ParseOrderQuery(v url.Values) OrderQuery {
	q := OrderQuery{
		Search: strings.TrimSpace(v.Get("q")),
		Status: OrderStatus(v.Get("status")),
		Sort:   v.Get("sort"),
		Desc:   v.Get("dir") != "asc",
		Page:   1,
	}
	if !orderSortKeys[q.Sort] {
		q.Sort = "date"
	}
	if p, err := strconv.Atoi(v.Get("page")); err == nil {
		q.Page = p
	}
	if s, err := strconv.Atoi(v.Get("size")); err == nil {
		q.PageSize = s
	}
	return q
}

// Match filters by status and a case-insensitive search over id, site, kit
// and patient reference.
func (q OrderQuery) Match(o Order) bool {
	if q.Status != "" && o.Status != q.Status {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	for _, field := range []string{o.ID, o.SiteName, o.KitName, o.PatientRef} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Sorted filters and sorts without paging, for exports.
func (q OrderQuery) Sorted(orders []Order) []Order {
	out := Filter(orders, q.Match)
	switch q.Sort {
	case "id":
		return SortBy(out, func(o Order) string { return o.ID }, q.Desc)
	case "site":
		return SortBy(out, func(o Order) string { return o.SiteName }, q.Desc)
	case "status":
		return SortBy(out, func(o Order) string { return string(o.Status) }, q.Desc)
	case "quantity":
		return SortBy(out, func(o Order) int { return o.Quantity }, q.Desc)
	default:
		return SortBy(out, func(o Order) int64 { return o.OrderedAt.Unix() }, q.Desc)
	}
}

func (q OrderQuery) Apply(orders []Order) Page[Order] {
	return Paginate(q.Sorted(orders), q.Page, q.PageSize)
}
