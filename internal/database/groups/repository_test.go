package groups

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/biblioteca/internal/database"
	"github.com/mrlokans/biblioteca/internal/database/books"
	"github.com/mrlokans/biblioteca/internal/database/crud"
	"github.com/mrlokans/biblioteca/internal/database/dbtest"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

func setupTestDB(t *testing.T, v dbtest.Variant) (*Repository, []int64) {
	db := dbtest.Open(t, v)
	return NewRepository(db), seedBooks(t, db, "Rayuela", "Ficciones", "Aura")
}

func seedBooks(t *testing.T, db *database.Database, titles ...string) []int64 {
	repo := books.NewRepository(db)
	ids := make([]int64, 0, len(titles))
	for _, title := range titles {
		id, err := repo.Create(context.Background(), query.Fields{"TITULO": title})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func titles(rows []database.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.String("TITULO"))
	}
	return out
}

func TestRepository_CreateWithBooks(t *testing.T) {
	for _, v := range dbtest.Variants() {
		t.Run(string(v), func(t *testing.T) {
			repo, bookIDs := setupTestDB(t, v)
			ctx := context.Background()

			id, err := repo.Create(ctx, query.Fields{
				"NOMBRE":        "Club de los jueves",
				"FECHA_REUNION": "2024-03-15",
				"LUGAR":         "Sala 2",
				BooksField:      []string{"1", "2", "2"},
			})
			require.NoError(t, err)

			row, err := repo.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "Club de los jueves", row.String("NOMBRE"))
			assert.Equal(t, "2024-03-15", row.String("FECHA_REUNION"))

			listed, err := repo.ListBooks(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []string{"Ficciones", "Rayuela"}, titles(listed))
			assert.Equal(t, int64(2), dbtest.Count(t, repo.DB(), "LIBRO_GRUPO"))

			first, _ := listed[1].Int64("ID_LIBRO")
			assert.Equal(t, bookIDs[0], first)
		})
	}
}

func TestRepository_ReplaceBooks(t *testing.T) {
	for _, v := range dbtest.Variants() {
		t.Run(string(v), func(t *testing.T) {
			repo, bookIDs := setupTestDB(t, v)
			ctx := context.Background()

			id, err := repo.Create(ctx, query.Fields{"NOMBRE": "Club", BooksField: bookIDs[:2]})
			require.NoError(t, err)
			other, err := repo.Create(ctx, query.Fields{"NOMBRE": "Otro", BooksField: bookIDs[2:]})
			require.NoError(t, err)

			require.NoError(t, repo.ReplaceBooks(ctx, id, bookIDs[1:]))
			listed, err := repo.ListBooks(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []string{"Aura", "Ficciones"}, titles(listed))

			require.NoError(t, repo.ReplaceBooks(ctx, id, nil))
			listed, err = repo.ListBooks(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, listed)

			listed, err = repo.ListBooks(ctx, other)
			require.NoError(t, err)
			assert.Equal(t, []string{"Aura"}, titles(listed))
			assert.Equal(t, int64(1), dbtest.Count(t, repo.DB(), "LIBRO_GRUPO"))
		})
	}
}

func TestRepository_EmptySelectionLeavesNoJoinRows(t *testing.T) {
	repo, bookIDs := setupTestDB(t, dbtest.Reference)
	ctx := context.Background()

	id, err := repo.Create(ctx, query.Fields{"NOMBRE": "Club", BooksField: bookIDs})
	require.NoError(t, err)
	require.Equal(t, int64(3), dbtest.Count(t, repo.DB(), "LIBRO_GRUPO"))

	require.NoError(t, repo.Update(ctx, id, query.Fields{"NOMBRE": "Club", BooksField: ""}))
	assert.Zero(t, dbtest.Count(t, repo.DB(), "LIBRO_GRUPO"))
}

func TestRepository_UpdateWithoutBooksKeepsSet(t *testing.T) {
	repo, bookIDs := setupTestDB(t, dbtest.TextDates)
	ctx := context.Background()

	id, err := repo.Create(ctx, query.Fields{"NOMBRE": "Club", BooksField: bookIDs[:1]})
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, id, query.Fields{"LUGAR": "Biblioteca"}))
	listed, err := repo.ListBooks(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rayuela"}, titles(listed))

	row, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Biblioteca", row.String("LUGAR"))
}

func TestRepository_BooksFieldAnyCase(t *testing.T) {
	for _, v := range dbtest.Variants() {
		t.Run(string(v), func(t *testing.T) {
			repo, bookIDs := setupTestDB(t, v)
			ctx := context.Background()

			id, err := repo.Create(ctx, query.Fields{"NOMBRE": "Club", "libros": bookIDs[:2]})
			require.NoError(t, err)
			listed, err := repo.ListBooks(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []string{"Ficciones", "Rayuela"}, titles(listed))

			require.NoError(t, repo.Update(ctx, id, query.Fields{"Libros": bookIDs[2:]}))
			listed, err = repo.ListBooks(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []string{"Aura"}, titles(listed))
		})
	}
}

func TestRepository_BooksOfMissingGroup(t *testing.T) {
	for _, v := range dbtest.Variants() {
		t.Run(string(v), func(t *testing.T) {
			repo, bookIDs := setupTestDB(t, v)
			ctx := context.Background()

			err := repo.Update(ctx, 999, query.Fields{BooksField: bookIDs})
			assert.ErrorIs(t, err, crud.ErrNotFound)
			err = repo.ReplaceBooks(ctx, 999, bookIDs)
			assert.ErrorIs(t, err, crud.ErrNotFound)
			_, err = repo.ListBooks(ctx, 999)
			assert.ErrorIs(t, err, crud.ErrNotFound)

			assert.Zero(t, dbtest.Count(t, repo.DB(), "LIBRO_GRUPO"))
		})
	}
}

func TestRepository_GroupsWithoutBooksGetDistinctSets(t *testing.T) {
	repo, bookIDs := setupTestDB(t, dbtest.Reference)
	ctx := context.Background()

	empty, err := repo.Create(ctx, query.Fields{"NOMBRE": "Vacío"})
	require.NoError(t, err)
	full, err := repo.Create(ctx, query.Fields{"NOMBRE": "Lleno", BooksField: bookIDs})
	require.NoError(t, err)

	listed, err := repo.ListBooks(ctx, empty)
	require.NoError(t, err)
	assert.Empty(t, listed)
	listed, err = repo.ListBooks(ctx, full)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestRepository_DeleteRemovesLinks(t *testing.T) {
	for _, v := range dbtest.Variants() {
		t.Run(string(v), func(t *testing.T) {
			repo, bookIDs := setupTestDB(t, v)
			ctx := context.Background()

			id, err := repo.Create(ctx, query.Fields{"NOMBRE": "Club", BooksField: bookIDs})
			require.NoError(t, err)

			require.NoError(t, repo.Delete(ctx, id))
			_, err = repo.Get(ctx, id)
			assert.ErrorIs(t, err, crud.ErrNotFound)
			assert.Zero(t, dbtest.Count(t, repo.DB(), "LIBRO_GRUPO"))
			assert.Equal(t, int64(3), dbtest.Count(t, repo.DB(), "LIBRO"))
		})
	}
}

func TestRepository_FailedBookInsertRollsBackGroup(t *testing.T) {
	repo, _ := setupTestDB(t, dbtest.Reference)
	ctx := context.Background()

	_, err := repo.Create(ctx, query.Fields{"NOMBRE": "Club", BooksField: []int64{999}})
	require.Error(t, err)

	assert.Zero(t, dbtest.Count(t, repo.DB(), "GRUPO_LECTURA"))
	assert.Zero(t, dbtest.Count(t, repo.DB(), "LIBRO_GRUPO"))
}

func TestBookIDs(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    []int64
		wantErr bool
	}{
		{"nil", nil, nil, false},
		{"empty string", "", nil, false},
		{"comma list", "3, 1,3", []int64{3, 1}, false},
		{"strings", []string{"2", " ", "5"}, []int64{2, 5}, false},
		{"ints", []int64{7, 7}, []int64{7}, false},
		{"json", []any{float64(4), "6"}, []int64{4, 6}, false},
		{"garbage", "1,x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BookIDs(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, query.ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
