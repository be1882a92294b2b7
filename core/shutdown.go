package core

import "sync/atomic"

var globalState struct {
	isShutdown uint32
	reason     atomic.Value // string
}

// TryShutdown latches a firmware shutdown with a reason message.
// Used for unrecoverable hardware faults such as a display that never clears busy.
func TryShutdown(reason string) {
	if atomic.CompareAndSwapUint32(&globalState.isShutdown, 0, 1) {
		globalState.reason.Store(reason)
		DebugPrintln("[SHUTDOWN] " + reason)
	}
}

// IsShutdown returns true if the firmware is in shutdown state
func IsShutdown() bool {
	return atomic.LoadUint32(&globalState.isShutdown) != 0
}

// ShutdownReason returns the reason passed to the first TryShutdown call
func ShutdownReason() string {
	if r, ok := globalState.reason.Load().(string); ok {
		return r
	}
	return ""
}

// ResetFirmwareState clears the shutdown flag
func ResetFirmwareState() {
	atomic.StoreUint32(&globalState.isShutdown, 0)
	globalState.reason.Store("")
}
