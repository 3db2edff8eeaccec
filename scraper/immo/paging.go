package immo

import (
	"immo-scraper/models"
)

// ReadPaging extracts the pagination state of a page. Every counter is
// required; the next link is optional.
func ReadPaging(page *models.RawPage) (models.PagingState, error) {
	if page == nil || page.SearchResponseModel == nil {
		return models.PagingState{}, &models.MalformedPageError{Field: "searchResponseModel"}
	}
	list := page.SearchResponseModel.ResultList
	if list == nil {
		return models.PagingState{}, &models.MalformedPageError{Field: "resultlist.resultlist"}
	}
	p := list.Paging
	if p == nil {
		return models.PagingState{}, &models.MalformedPageError{Field: "paging"}
	}

	counters := []struct {
		name string
		v    *int
	}{
		{"pageNumber", p.PageNumber},
		{"pageSize", p.PageSize},
		{"numberOfPages", p.NumberOfPages},
		{"numberOfHits", p.NumberOfHits},
		{"numberOfListings", p.NumberOfListings},
	}
	for _, c := range counters {
		if c.v == nil {
			return models.PagingState{}, &models.MalformedPageError{Field: "paging." + c.name}
		}
	}

	state := models.PagingState{
		PageNumber:    *p.PageNumber,
		PageSize:      *p.PageSize,
		TotalPages:    *p.NumberOfPages,
		TotalHits:     *p.NumberOfHits,
		TotalListings: *p.NumberOfListings,
	}
	if p.Next != nil && p.Next.Href != "" {
		href := p.Next.Href
		state.NextLink = &href
	}
	return state, nil
}
