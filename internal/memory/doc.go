// Package memory keeps a scan inside its container's memory limit.
//
// Go does not read the cgroup memory limit on its own, so [ConfigureFromEnv]
// derives GOMEMLIMIT from the MEMORY_LIMIT and MEMORY_RATIO environment
// variables (typically set through the Kubernetes Downward API). Call it
// first thing in main:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ...
//	}
//
// Decoded images are the largest allocations a scan makes. [PixelBudget]
// turns the heap limit into a ceiling on width*height; images above it fail
// before any pixel memory is allocated.
//
// A [Monitor] samples the heap and pauses the scanner between files while
// usage sits above the critical water mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if !monitor.WaitIfPaused(ctx) {
//	    return // cancelled
//	}
//
// GOMEMLIMIT is a soft limit that only covers the Go heap. libvips
// allocations made through cgo are outside it, which is what the share left
// by MEMORY_RATIO is for.
package memory
