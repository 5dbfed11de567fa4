package handler

import (
	"net/http"
	"strconv"

	"github.com/advenue/screen-server/internal/model"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type PaginationParams struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request) PaginationParams {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}

	if offset < 0 {
		offset = 0
	}

	return PaginationParams{
		Limit:  limit,
		Offset: offset,
	}
}

// Apply returns the page of screens selected by p. The result is never nil.
func (p PaginationParams) Apply(screens []model.ScreenView) []model.ScreenView {
	if p.Offset >= len(screens) {
		return []model.ScreenView{}
	}
	end := p.Offset + p.Limit
	if end > len(screens) {
		end = len(screens)
	}
	return screens[p.Offset:end]
}
