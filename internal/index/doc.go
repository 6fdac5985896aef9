// Package index owns an open segdex index and exposes its three surfaces:
//
//   - Handle: opens or creates the bleve index at a directory, checks the
//     stored schema, and serves ranked searches from committed snapshots.
//   - Writer: the single mutation session of a Handle. Add, Update and
//     Delete each commit before returning, so a search issued afterwards
//     observes the change.
//   - Batch: opt-in buffering of many mutations into fewer commits, bounded
//     by the writer's byte budget.
//
// Usage:
//
//	h, err := index.Open(index.Options{Path: "search_index"})
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	w, err := h.Writer()
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	_ = w.Add(ctx, index.Document{ID: "a1", Title: "apple pie", Content: "a sweet dessert"})
//	results, err := h.Search(ctx, "apple")
//
// Searches are safe for concurrent use and never wait on a writer. Only one
// Writer may exist per Handle, and for on-disk indexes a lock file keeps
// other processes from opening a second one.
package index
