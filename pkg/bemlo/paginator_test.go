package bemlo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/tidwall/gjson"
)

// pageBackend serves VacanciesList responses keyed by the afterCursor
// variable of the incoming request.
func pagedGraphQL(t *testing.T, pages map[string]string) func(int64, http.ResponseWriter, *http.Request) {
	t.Helper()
	return func(_ int64, w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cursor := gjson.GetBytes(body, "variables.afterCursor").String()
		resp, ok := pages[cursor]
		if !ok {
			t.Errorf("unexpected cursor %q", cursor)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(resp))
	}
}

func pageJSON(ids []string, hasNext bool, endCursor string) string {
	edges := ""
	for i, id := range ids {
		if i > 0 {
			edges += ","
		}
		edges += fmt.Sprintf(`{"node":{"id":"%s","title":"Vacancy %s","tender":{"fillRate":0.5}}}`, id, id)
	}
	return fmt.Sprintf(`{"data":{"allVacancies":{
		"pageInfo":{"hasNextPage":%t,"endCursor":"%s"},
		"edges":[%s]
	}}}`, hasNext, endCursor, edges)
}

func TestFetchPage(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = pagedGraphQL(t, map[string]string{
		"": pageJSON([]string{"a", "b"}, true, "cursor-1"),
	})

	p := NewPaginator(newTestClient(tb))
	items, hasNext, endCursor, err := p.FetchPage(context.Background(), "")
	if err != nil {
		t.Fatalf("fetch page failed: %v", err)
	}
	if len(items) != 2 || items[0].ID != "a" || items[1].ID != "b" {
		t.Errorf("unexpected items: %+v", items)
	}
	if !hasNext || endCursor != "cursor-1" {
		t.Errorf("unexpected page info: hasNext=%t cursor=%q", hasNext, endCursor)
	}
}

func TestFetchAllWalksCursors(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = pagedGraphQL(t, map[string]string{
		"":         pageJSON([]string{"a", "b"}, true, "cursor-1"),
		"cursor-1": pageJSON([]string{"c"}, true, "cursor-2"),
		"cursor-2": pageJSON([]string{"d"}, false, ""),
	})

	p := NewPaginator(newTestClient(tb))
	all, err := p.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch all failed: %v", err)
	}

	// Source order preserved, no dedup or re-sort.
	want := []string{"a", "b", "c", "d"}
	if len(all) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(all))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("item %d: expected %q, got %q", i, id, all[i].ID)
		}
	}
}

func TestFetchAllStopsAtMaxPages(t *testing.T) {
	tb := newTestBackend(t)
	// The source never stops reporting a next page; every cursor loops back
	// to the same response.
	tb.graphql = func(_ int64, w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageJSON([]string{"x"}, true, "")))
	}

	p := NewPaginator(newTestClient(tb))
	p.MaxPages = 3
	all, err := p.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch all failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected the cap to stop traversal at 3 pages, got %d items", len(all))
	}
}

func TestFetchAllSurfacesPageError(t *testing.T) {
	tb := newTestBackend(t)
	tb.graphql = func(call int64, w http.ResponseWriter, r *http.Request) {
		if call == 1 {
			w.Write([]byte(pageJSON([]string{"a"}, true, "cursor-1")))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}

	p := NewPaginator(newTestClient(tb))
	all, err := p.FetchAll(context.Background())
	if err == nil {
		t.Fatal("expected the second page failure to surface")
	}
	if len(all) != 1 {
		t.Errorf("expected the first page's items alongside the error, got %d", len(all))
	}
}
