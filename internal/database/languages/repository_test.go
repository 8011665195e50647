package languages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/biblioteca/internal/database/dbtest"
	"github.com/mrlokans/biblioteca/internal/database/query"
)

func TestRepository_LabelColumnVariants(t *testing.T) {
	for _, v := range dbtest.Variants() {
		t.Run(string(v), func(t *testing.T) {
			repo := NewRepository(dbtest.Open(t, v))
			ctx := context.Background()

			first, err := repo.Create(ctx, query.Fields{"LENGUA": "Español"})
			require.NoError(t, err)
			second, err := repo.Create(ctx, query.Fields{"IDIOMA": "Inglés"})
			require.NoError(t, err)

			rows, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			id, _ := rows[0].Int64("ID_IDIOMA")
			assert.Equal(t, second, id)
			assert.Equal(t, "Inglés", rows[0].String("LENGUA"))
			assert.Equal(t, "Español", rows[1].String("LENGUA"))

			require.NoError(t, repo.Delete(ctx, first))
			rows, err = repo.List(ctx)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
		})
	}
}
