package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/storage/memory"
)

func TestProvider_QueryPublished(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p, err := New(store)
	require.NoError(t, err)

	footer := storefront.FooterData{Menu: &storefront.Menu{ID: "gid://shopify/Menu/2", Items: []storefront.MenuItem{{ID: "1", Title: "Search", URL: "/search"}}}}
	q := storefront.Query{Name: storefront.QueryFooter}
	require.NoError(t, p.Publish(ctx, q, footer))

	meta, err := store.Stat(ctx, "documents/us-en/footer.json")
	require.NoError(t, err)
	assert.Positive(t, meta.Size)

	doc, err := p.Query(ctx, q.WithLocale(storefront.DefaultLocale))
	require.NoError(t, err)
	assert.Equal(t, storefront.QueryFooter, doc.Query)

	var got storefront.FooterData
	require.NoError(t, doc.Decode(&got))
	assert.Equal(t, footer, got)
}

func TestProvider_LocaleFromVariables(t *testing.T) {
	p, err := New(memory.New())
	require.NoError(t, err)

	q := storefront.Query{Name: storefront.QueryHeader}.WithLocale(storefront.Locale{Country: "CA", Language: "FR"})
	assert.Equal(t, "documents/ca-fr/header.json", p.Key(q))
	assert.Equal(t, "documents/us-en/header.json", p.Key(storefront.Query{Name: storefront.QueryHeader}))
}

func TestProvider_Errors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p, err := New(store, WithMaxDocumentSize(16))
	require.NoError(t, err)

	t.Run("missing document", func(t *testing.T) {
		_, err := p.Query(ctx, storefront.Query{Name: storefront.QueryHeader})
		assert.ErrorIs(t, err, storefront.ErrQueryNotFound)
		var perr *storefront.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "blob", perr.Provider)
	})

	t.Run("invalid json", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "documents/us-en/footer.json", strings.NewReader("{nope")))
		_, err := p.Query(ctx, storefront.Query{Name: storefront.QueryFooter})
		assert.ErrorContains(t, err, "not valid JSON")
	})

	t.Run("oversized", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "documents/us-en/header.json", strings.NewReader(`{"shop":{"name":"a long shop name"}}`)))
		_, err := p.Query(ctx, storefront.Query{Name: storefront.QueryHeader})
		assert.ErrorContains(t, err, "exceeds")
	})

	t.Run("cart unsupported", func(t *testing.T) {
		_, err := p.Query(ctx, storefront.Query{Name: storefront.QueryCart})
		assert.ErrorIs(t, err, storefront.ErrUnsupported)

		_, err = p.Mutate(ctx, "", storefront.RemoveLine("line-1"))
		assert.ErrorIs(t, err, storefront.ErrUnsupported)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})
}
