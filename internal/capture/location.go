package capture

import "sync"

// LocationSource supplies the best-effort last-known device location to
// the capture loop. Fixes arrive either from frame sidecars via the loop
// or from an asynchronous platform callback.
type LocationSource interface {
	Update(loc GPSLocation)
	Last() GPSLocation
}

// IMUSource supplies the most recent IMU reading.
type IMUSource interface {
	Last() IMUSample
}

// LocationWatcher holds the last known location pushed by an asynchronous
// location callback. Updates and reads come from different goroutines.
type LocationWatcher struct {
	mu   sync.Mutex
	last GPSLocation
}

// Update records a new location fix. It is safe to call from any goroutine.
func (w *LocationWatcher) Update(loc GPSLocation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = loc
}

// Last returns the most recent fix, or the zero location if none arrived.
func (w *LocationWatcher) Last() GPSLocation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// StubIMU is the placeholder IMU source: all readings are zero until real
// sensor plumbing exists.
type StubIMU struct{}

// Last returns a zero IMU sample.
func (StubIMU) Last() IMUSample {
	return IMUSample{}
}
