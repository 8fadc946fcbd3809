// Package watch keeps a plugin cache current while the process runs.
//
// A Rescanner scans the plugin directories and saves the cache. A Watcher
// triggers it from fsnotify events; a Scheduler triggers it on a cron
// schedule:
//
//	r := watch.NewRescanner(cache, paths, store, "plugins.cache", log)
//	w, err := watch.NewWatcher(r, []string{".ofx"}, time.Second, log)
//	go w.Run(ctx)
//
//	s, err := watch.NewScheduler(r, "*/15 * * * *", log)
//	s.Start()
//	defer s.Stop(ctx)
package watch
