// Package watcher keeps an index in sync with a directory of document files.
//
// Changes are detected with fsnotify, or by polling where fsnotify is not
// available, debounced per path, and applied by a Syncer: a created or
// modified file upserts every document it contains and deletes documents it
// no longer contains; a removed file deletes every document last seen in it.
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	s := watcher.NewSyncer(writer, root, logger)
//	return s.Run(ctx, w)
package watcher
