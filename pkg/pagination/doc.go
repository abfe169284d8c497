// Package pagination walks every page of a paginated API-Football
// listing in parallel.
//
// Listings such as /players report their position in the envelope's
// paging block. The walker probes page 1 for the total, then spreads
// the remaining pages across a bounded worker pool.
//
// Example usage:
//
//	params := client.PlayersParams{League: 39, Season: 2024}
//	walker := pagination.NewWalker(func(ctx context.Context, page int) (*client.Envelope, error) {
//		p := params
//		p.Page = page
//		return fetcher.Players(ctx, p)
//	}, pagination.DefaultConfig())
//	pages, err := walker.FetchAll(ctx)
//
// Routing the PageFunc through a fetcher caches and rate-limits each
// page like any other request. When a page fails, the fetched subset is
// returned alongside the error.
package pagination
