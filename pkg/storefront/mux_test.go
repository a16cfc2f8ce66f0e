package storefront_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-storefront/pkg/storefront"
	"github.com/tendant/simple-storefront/pkg/storefront/providers/memory"
)

type closingProvider struct {
	*memory.Provider
	closed int
	err    error
}

func (p *closingProvider) Close() error {
	p.closed++
	return p.err
}

func TestProviderMux_Routes(t *testing.T) {
	ctx := context.Background()

	fallback := newSeededProvider(t)
	menus := memory.New()
	require.NoError(t, menus.SetDocument(storefront.QueryFooter, storefront.FooterData{
		Menu: &storefront.Menu{ID: "gid://shopify/Menu/routed"},
	}))

	mux := storefront.NewProviderMux(fallback).Handle(storefront.QueryFooter, menus)

	doc, err := mux.Query(ctx, storefront.Query{Name: storefront.QueryFooter})
	require.NoError(t, err)
	var footer storefront.FooterData
	require.NoError(t, doc.Decode(&footer))
	assert.Equal(t, "gid://shopify/Menu/routed", footer.Menu.ID)
	assert.Zero(t, fallback.Calls(storefront.QueryFooter))

	_, err = mux.Query(ctx, storefront.Query{Name: storefront.QueryHeader})
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.Calls(storefront.QueryHeader))

	snapshot, err := mux.Mutate(ctx, "", storefront.AddLine("gid://shopify/ProductVariant/1001", 1, nil))
	require.NoError(t, err)
	_, ok := fallback.Cart(snapshot.ID)
	assert.True(t, ok)
	assert.Zero(t, menus.Calls(memory.MutateKey))
}

func TestProviderMux_NoFallback(t *testing.T) {
	mux := storefront.NewProviderMux(nil)

	_, err := mux.Query(context.Background(), storefront.Query{Name: storefront.QueryHeader})
	assert.ErrorIs(t, err, storefront.ErrQueryNotFound)

	_, err = mux.Mutate(context.Background(), "", storefront.RemoveLine("gid://shopify/CartLine/1"))
	assert.ErrorIs(t, err, storefront.ErrUnsupported)

	assert.NoError(t, mux.Close())
}

func TestProviderMux_Close(t *testing.T) {
	shared := &closingProvider{Provider: memory.New()}
	failing := &closingProvider{Provider: memory.New(), err: errors.New("close failed")}

	mux := storefront.NewProviderMux(shared).
		Handle(storefront.QueryHeader, shared).
		Handle(storefront.QueryFooter, failing)

	err := mux.Close()
	assert.ErrorContains(t, err, "close failed")
	assert.Equal(t, 1, shared.closed)
	assert.Equal(t, 1, failing.closed)
}
