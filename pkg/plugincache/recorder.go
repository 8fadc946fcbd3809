package plugincache

import "time"

// Scan results passed to Recorder.ModuleScanned
const (
	ResultCached = "cached"
	ResultLoaded = "loaded"
	ResultFailed = "failed"
)

// Recorder receives cache events. observability.Metrics implements it.
type Recorder interface {
	ModuleScanned(result string)
	ModuleLoaded()
	CacheHit()
	CacheMiss()
	CollisionDetected(c Collision)
	ScanCompleted(d time.Duration, plugins int)
	EntryStatus(action, status string)
}

type nopRecorder struct{}

func (nopRecorder) ModuleScanned(string) {}
func (nopRecorder) ModuleLoaded() {}
func (nopRecorder) CacheHit() {}
func (nopRecorder) CacheMiss() {}
func (nopRecorder) CollisionDetected(Collision) {}
func (nopRecorder) ScanCompleted(time.Duration, int) {}
func (nopRecorder) EntryStatus(string, string) {}
