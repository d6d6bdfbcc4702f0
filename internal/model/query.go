package model

import "strconv"

type SortKey string

const (
	SortCreatedAt SortKey = "created_at"
	SortUpdatedAt SortKey = "updated_at"
	SortPriority  SortKey = "priority"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListQuery is a normalized list request. Use ParseListQuery to build one
// from raw query-string values.
type ListQuery struct {
	Page   int
	Limit  int
	Status *string
	Sort   SortKey
	Order  SortOrder
}

// ParseListQuery never fails: anything it cannot make sense of falls back
// to the default.
func ParseListQuery(page, limit, status, sort, order string) ListQuery {
	q := ListQuery{
		Page:  max(1, atoiOr(page, DefaultPage)),
		Limit: min(MaxLimit, max(1, atoiOr(limit, DefaultLimit))),
		Sort:  ParseSortKey(sort),
		Order: OrderDesc,
	}
	if status != "" {
		q.Status = &status
	}
	if order == string(OrderAsc) {
		q.Order = OrderAsc
	}
	return q
}

func ParseSortKey(s string) SortKey {
	switch s {
	case "priority":
		return SortPriority
	case "updated_at", "updatedAt":
		return SortUpdatedAt
	default:
		return SortCreatedAt
	}
}

// atoiOr treats zero the same as garbage.
func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return def
	}
	return n
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type TaskPage struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}
