package notionsync

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

type mockNotion struct {
	pages [][]notionapi.Page

	CreatePageFunc func(props notionapi.Properties) error

	created  []notionapi.Properties
	updated  map[string]notionapi.Properties
	archived []string
	queries  []*notionapi.DatabaseQueryRequest
}

func newMockNotion(pages ...[]notionapi.Page) *mockNotion {
	return &mockNotion{pages: pages, updated: map[string]notionapi.Properties{}}
}

func (m *mockNotion) CreatePage(_ context.Context, _ string, props notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		if err := m.CreatePageFunc(props); err != nil {
			return nil, err
		}
	}
	m.created = append(m.created, props)
	return &notionapi.Page{ID: "new"}, nil
}

func (m *mockNotion) UpdatePage(_ context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	m.updated[pageID] = props
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *mockNotion) QueryDatabase(_ context.Context, _ string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	m.queries = append(m.queries, req)
	i := len(m.queries) - 1
	if i >= len(m.pages) {
		return &notionapi.DatabaseQueryResponse{}, nil
	}
	resp := &notionapi.DatabaseQueryResponse{Results: m.pages[i]}
	if i < len(m.pages)-1 {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor("cursor-" + string(rune('a'+i)))
	}
	return resp, nil
}

func (m *mockNotion) ArchivePage(_ context.Context, pageID string) error {
	m.archived = append(m.archived, pageID)
	return nil
}

type staticReader struct {
	rows []domain.NormalizedCategory
	err  error
}

func (s staticReader) ListCategories(context.Context, store.Filter) ([]domain.NormalizedCategory, error) {
	return s.rows, s.err
}

func (s staticReader) GetCategory(context.Context, int64) (*domain.NormalizedCategory, error) {
	return nil, store.ErrNotFound
}

func (s staticReader) CountCategories(context.Context) (int64, error) {
	return int64(len(s.rows)), nil
}

func page(id string, sourceID float64) notionapi.Page {
	p := notionapi.Page{ID: notionapi.ObjectID(id), Properties: notionapi.Properties{}}
	if sourceID != 0 {
		p.Properties[PropSourceID] = &notionapi.NumberProperty{Number: sourceID}
	}
	return p
}

func strPtr(s string) *string { return &s }

func rows() []domain.NormalizedCategory {
	return []domain.NormalizedCategory{
		{SourceID: 1, Name: "Elektronik > HP", Slug: "elektronik-hp", MainCategory: "Elektronik", Sub1: strPtr("HP"), Image: strPtr("https://cdn/hp.png"), IsActive: true, Position: 1},
		{SourceID: 2, Name: "Fashion", Slug: "fashion", MainCategory: "Fashion", IsActive: false, Position: 2},
	}
}

func TestSyncCategories(t *testing.T) {
	notion := newMockNotion(
		[]notionapi.Page{page("p1", 1), page("p-stale", 9)},
		[]notionapi.Page{page("p-dup", 1), page("p-noid", 0)},
	)

	res, err := SyncCategories(context.Background(), staticReader{rows: rows()}, notion, "db", false)
	require.NoError(t, err)

	assert.Equal(t, Result{Created: 1, Updated: 1, Archived: 3}, res)
	assert.Contains(t, notion.updated, "p1")
	assert.ElementsMatch(t, []string{"p-stale", "p-dup", "p-noid"}, notion.archived)
	require.Len(t, notion.created, 1)
	assert.Equal(t, notionapi.NumberProperty{Number: 2}, notion.created[0][PropSourceID])
	assert.Equal(t, notionapi.CheckboxProperty{Checkbox: false}, notion.created[0][PropIsActive])

	require.Len(t, notion.queries, 2)
	assert.Empty(t, notion.queries[0].StartCursor)
	assert.Equal(t, notionapi.Cursor("cursor-a"), notion.queries[1].StartCursor)
}

func TestSyncCategories_DryRunWritesNothing(t *testing.T) {
	notion := newMockNotion([]notionapi.Page{page("p1", 1), page("p-stale", 9)})

	res, err := SyncCategories(context.Background(), staticReader{rows: rows()}, notion, "db", true)
	require.NoError(t, err)

	assert.Equal(t, Result{Created: 1, Updated: 1, Archived: 1}, res)
	assert.Empty(t, notion.created)
	assert.Empty(t, notion.updated)
	assert.Empty(t, notion.archived)
}

func TestSyncCategories_PageFailureIsSkipped(t *testing.T) {
	notion := newMockNotion()
	notion.CreatePageFunc = func(props notionapi.Properties) error {
		if props[PropSourceID] == (notionapi.NumberProperty{Number: 1}) {
			return errors.New("rate limited")
		}
		return nil
	}

	res, err := SyncCategories(context.Background(), staticReader{rows: rows()}, notion, "db", false)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1, Failed: 1}, res)
}

func TestSyncCategories_StoreError(t *testing.T) {
	_, err := SyncCategories(context.Background(), staticReader{err: store.ErrSchemaNotReady}, newMockNotion(), "db", false)
	assert.ErrorIs(t, err, store.ErrSchemaNotReady)
}

func TestCategoryToNotionProperties(t *testing.T) {
	props := CategoryToNotionProperties(rows()[0])

	title := props[PropName].(notionapi.TitleProperty)
	assert.Equal(t, "Elektronik > HP", title.Title[0].Text.Content)
	assert.Equal(t, notionapi.SelectProperty{Select: notionapi.Option{Name: "Elektronik"}}, props[PropMainCategory])
	assert.Equal(t, notionapi.URLProperty{URL: "https://cdn/hp.png"}, props[PropImage])
	assert.Empty(t, props[PropSub2].(notionapi.RichTextProperty).RichText)

	_, hasImage := CategoryToNotionProperties(rows()[1])[PropImage]
	assert.False(t, hasImage)
}

func TestSourceIDFromPage(t *testing.T) {
	assert.Equal(t, int64(5), sourceIDFromPage(page("p", 5)))
	assert.Zero(t, sourceIDFromPage(page("p", 0)))
	assert.Zero(t, sourceIDFromPage(page("p", 1.5)))
	assert.Zero(t, sourceIDFromPage(page("p", -3)))

	wrongType := notionapi.Page{Properties: notionapi.Properties{PropSourceID: &notionapi.RichTextProperty{}}}
	assert.Zero(t, sourceIDFromPage(wrongType))
}
