// Package pagination loads a paginated catalog listing two pages at a time
// and merges the results into a single duplicate-free list.
//
// The Engine owns the accumulated list and the pagination counters. All
// mutation happens on one event-loop goroutine started by Start; page
// requests run on their own goroutines and their joined completion is
// posted back to the loop. Every refresh starts a new generation, and
// completions from an older generation are dropped.
//
// Example usage:
//
//	engine := pagination.NewEngine(client, monitor)
//	engine.Start(ctx)
//	defer engine.Close()
//
//	cancel := engine.Subscribe(func(ev pagination.Event) {
//		if ev.Kind == pagination.EventBatchAppended {
//			fmt.Println("appended", ev.Range)
//		}
//	})
//	defer cancel()
//
//	engine.Refresh()
//
// The Coordinator sits between the Engine and a View. It keeps the
// first-load indicator visible for a minimum duration and drives
// load-more from scroll positions.
//
// A batch:
//   - Requests page N+1 and, while more pages may exist, page N+2
//   - Waits for both requests before merging
//   - Merges page N+1 before page N+2 regardless of completion order
//   - Drops items whose id is already in the list
//   - Reports an error only when every page of the batch failed
package pagination
