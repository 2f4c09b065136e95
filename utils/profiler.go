package utils

import (
	"github.com/Luismorlan/postsync/utils/flag"
	Logger "github.com/Luismorlan/postsync/utils/log"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

// StartProfiler starts the Datadog profiler. Only production binaries are
// profiled, it is a no-op elsewhere.
func StartProfiler() {
	if !IsProdEnv() {
		return
	}

	if err := profiler.Start(
		profiler.WithService(*flag.ServiceName),
		profiler.WithEnv(ddEnv()),
		profiler.WithProfileTypes(
			profiler.CPUProfile,
			profiler.HeapProfile,
		),
	); err != nil {
		Logger.Log.Errorln("fail to start profiler:", err)
	}
}

// Stop profiler, OK to be closed multiple times
func CloseProfiler() {
	profiler.Stop()
}
