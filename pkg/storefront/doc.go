// Package storefront provides the server-side data tier of a commerce
// storefront: page data loading against a pluggable content provider and a
// per-session optimistic cart overlay.
//
// A page load splits its queries into critical and deferred ones. Critical
// queries are awaited concurrently and any failure fails the page. Deferred
// queries start at the same time but are returned as Deferred handles that
// settle later; a deferred failure settles the handle as unavailable and is
// logged, never raised.
//
// # Cart Overlay
//
// Cart mutations are applied locally to an OptimisticCart and returned to the
// caller before the provider confirms them. The derived view is always
// Fold(snapshot, pending). Confirmed snapshots reconcile the pending queue by
// acknowledged mutation id, or replace it wholesale when a newer snapshot
// carries no acknowledgements. Rejected mutations are dropped without retry.
//
// Implementations of content providers (memory, GraphQL, blob), cart stores
// (memory, Postgres) and blob stores (memory, filesystem, S3) live in
// subpackages.
package storefront
