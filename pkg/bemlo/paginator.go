package bemlo

import (
	"context"

	"github.com/tidwall/gjson"
	"github.com/vacwatch/vacwatch/internal/utils"
)

const (
	// DefaultPageSize is fixed per run; the source caps takes around this
	// size anyway.
	DefaultPageSize = 30

	// DefaultMaxPages bounds a traversal even when the source keeps
	// reporting more pages.
	DefaultMaxPages = 20
)

// Paginator walks the allVacancies connection cursor by cursor. It keeps
// source order (CREATED_AT descending) and never deduplicates: if upstream
// inserts rows mid-traversal the same vacancy can reappear on a later page,
// and collapsing those is the reconciler's job, keyed by id.
type Paginator struct {
	Client   *Client
	PageSize int
	MaxPages int
}

// NewPaginator builds a paginator with the default page size and cap.
func NewPaginator(client *Client) *Paginator {
	return &Paginator{
		Client:   client,
		PageSize: DefaultPageSize,
		MaxPages: DefaultMaxPages,
	}
}

// FetchPage retrieves a single page. An empty cursor starts from the
// beginning; the returned cursor requests the page after this one.
func (p *Paginator) FetchPage(ctx context.Context, afterCursor string) (items []Vacancy, hasNext bool, endCursor string, err error) {
	take := p.PageSize
	if take <= 0 {
		take = DefaultPageSize
	}

	variables := map[string]interface{}{
		"filter": map[string]interface{}{
			"AND": []interface{}{
				map[string]interface{}{
					"tender": map[string]interface{}{"doesAcceptPresentations": true},
				},
				map[string]interface{}{},
			},
		},
		"take":     take,
		"orderBy":  "CREATED_AT",
		"orderDir": "DESC",
	}
	if afterCursor != "" {
		variables["afterCursor"] = afterCursor
	}

	data, err := p.Client.Execute(ctx, "VacanciesList", vacanciesListQuery, variables)
	if err != nil {
		return nil, false, "", err
	}

	conn := data.Get("allVacancies")
	conn.Get("edges").ForEach(func(_, edge gjson.Result) bool {
		items = append(items, ParseVacancy(edge.Get("node")))
		return true
	})

	hasNext = conn.Get("pageInfo.hasNextPage").Bool()
	endCursor = conn.Get("pageInfo.endCursor").String()
	return items, hasNext, endCursor, nil
}

// FetchAll walks pages until the source reports no next page or MaxPages is
// reached.
func (p *Paginator) FetchAll(ctx context.Context) ([]Vacancy, error) {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var all []Vacancy
	cursor := ""

	for page := 0; page < maxPages; page++ {
		utils.Log.Debugf("Fetching page %d", page+1)
		items, hasNext, endCursor, err := p.FetchPage(ctx, cursor)
		if err != nil {
			return all, err
		}
		all = append(all, items...)
		if !hasNext {
			break
		}
		cursor = endCursor
	}

	utils.Log.Infof("Fetched %d vacancies", len(all))
	return all, nil
}
