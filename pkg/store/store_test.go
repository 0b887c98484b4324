package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/toddleops/pkg/project"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s, err := New(context.Background(), db, "sqlite3", nil)
	require.NoError(t, err)
	return s
}

func kite() *project.StandardProject {
	return &project.StandardProject{
		Name:            "Paper Kite",
		Description:     "A small kite made from paper and straws.",
		DurationMinutes: 30,
		Materials: project.ListMaterials(
			project.Material{Name: "paper", Quantity: "1 sheet"},
			project.Material{Name: "straws", Quantity: "2"},
		),
		Instructions: "1. Fold the paper.\n2. Tape the straws.",
	}
}

func boat() *project.StandardProject {
	return &project.StandardProject{
		Name:            "Cork Boat",
		Description:     "A floating boat for bath time.",
		DurationMinutes: 15,
		Materials:       project.TextMaterials("three corks, rubber band, felt"),
		Instructions:    "Band the corks together and add a felt sail.",
	}
}

func TestNew_RejectsUnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = New(context.Background(), db, "oracle", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")

	_, err = New(context.Background(), nil, DialectSQLite, nil)
	require.Error(t, err)
}

func TestSQLStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	saved, err := s.Save(ctx, kite())
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	got, err := s.GetByName(ctx, "Paper Kite")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, kite(), got.Project)
	assert.True(t, got.Project.Materials.Structured())
}

func TestSQLStore_TextMaterialsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, boat())
	require.NoError(t, err)

	got, err := s.GetByName(ctx, "Cork Boat")
	require.NoError(t, err)
	assert.False(t, got.Project.Materials.Structured())
	assert.Equal(t, "three corks, rubber band, felt", got.Project.Materials.Text)
}

func TestSQLStore_SaveReplacesByName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.Save(ctx, kite())
	require.NoError(t, err)

	updated := kite()
	updated.DurationMinutes = 45
	second, err := s.Save(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 45, all[0].Project.DurationMinutes)
}

func TestSQLStore_SaveRejects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, nil)
	require.Error(t, err)

	_, err = s.Save(ctx, project.OutOfScope())
	require.Error(t, err)

	invalid := kite()
	invalid.Name = ""
	_, err = s.Save(ctx, invalid)
	var verr *project.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSQLStore_GetByName_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetByName(context.Background(), "Missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_ListOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, kite())
	require.NoError(t, err)
	_, err = s.Save(ctx, boat())
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Paper Kite", all[0].Project.Name)
	assert.Equal(t, "Cork Boat", all[1].Project.Name)
}

func TestSQLStore_Search(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, kite())
	require.NoError(t, err)
	_, err = s.Save(ctx, boat())
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{name: "single word", query: "straws", want: []string{"Paper Kite"}},
		{name: "case insensitive", query: "CORKS", want: []string{"Cork Boat"}},
		{name: "all words must match", query: "paper bath", want: nil},
		{name: "empty query matches all", query: "", want: []string{"Cork Boat", "Paper Kite"}},
		{name: "limit", query: "", limit: 1, want: []string{"Cork Boat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.query, tt.limit)
			require.NoError(t, err)
			var names []string
			for _, r := range got {
				names = append(names, r.Project.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestSQLStore_SearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, kite())
	require.NoError(t, err)
	sale := boat()
	sale.Description = "A floating boat, 50% cork! Great for bath_time."
	_, err = s.Save(ctx, sale)
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "%", want: []string{"Cork Boat"}},
		{query: "_", want: []string{"Cork Boat"}},
		{query: "50%", want: []string{"Cork Boat"}},
		{query: "cork!", want: []string{"Cork Boat"}},
		{query: "bath_time", want: []string{"Cork Boat"}},
		{query: "p_per", want: nil},
		{query: "k%e", want: nil},
	}
	for _, tt := range tests {
		got, err := s.Search(ctx, tt.query, 0)
		require.NoError(t, err, tt.query)
		var names []string
		for _, r := range got {
			names = append(names, r.Project.Name)
		}
		assert.ElementsMatch(t, tt.want, names, tt.query)
	}
}

func TestSQLStore_Rebind(t *testing.T) {
	s := &SQLStore{dialect: DialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	s.dialect = DialectMySQL
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
}
