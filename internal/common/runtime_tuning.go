package common

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// GC and scheduler presets keyed by available CPU count. The quoters lean
// on sync.Pool scratch arenas, so GOGC stays high to keep pools warm
// between quote bursts and GOMEMLIMIT caps the heap instead.
const (
	smallGOGC     = 500
	smallMemLimit = int64(2.5 * 1024 * 1024 * 1024)

	mediumGOGC     = 800
	mediumMemLimit = int64(8 * 1024 * 1024 * 1024)

	largeGOGC     = 1000
	largeMemLimit = int64(16 * 1024 * 1024 * 1024)
)

func runtimeProfile() (gogc int, memLimit int64, maxProcs int) {
	cpus := runtime.NumCPU()
	switch {
	case cpus <= 2:
		// leave a core for the OS on tiny instances
		return smallGOGC, smallMemLimit, 1
	case cpus <= 8:
		return mediumGOGC, mediumMemLimit, cpus / 2
	default:
		return largeGOGC, largeMemLimit, cpus / 2
	}
}

// InitQuoteRuntime applies the latency-oriented runtime profile for the
// quote path. GOGC, GOMAXPROCS and GOMEMLIMIT environment variables take
// precedence when set.
func InitQuoteRuntime() {
	gogc, memLimit, maxProcs := runtimeProfile()

	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(gogc)
		log.Info().Int("gogc", gogc).Msg("runtime: GC percent set")
	}

	if os.Getenv("GOMAXPROCS") == "" {
		if maxProcs < 1 {
			maxProcs = 1
		}
		runtime.GOMAXPROCS(maxProcs)
		log.Info().
			Int("gomaxprocs", maxProcs).
			Int("num_cpu", runtime.NumCPU()).
			Msg("runtime: GOMAXPROCS set")
	}

	if os.Getenv("GOMEMLIMIT") == "" {
		debug.SetMemoryLimit(memLimit)
		log.Info().
			Int64("mem_limit_bytes", memLimit).
			Msg("runtime: memory limit set")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	log.Info().
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Uint64("heap_alloc_mb", mem.HeapAlloc/1024/1024).
		Str("go_version", runtime.Version()).
		Msg("runtime: tuning applied")
}
