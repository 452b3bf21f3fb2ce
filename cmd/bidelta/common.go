package main

import (
	"os"

	"github.com/gwillem/bidelta/internal/diffengine"
)

// engineOpt is embedded into every subcommand that runs the diff engine,
// mirroring the shared-flag-struct idiom the teacher uses for dbCmd.
type engineOpt struct {
	BlockSize   int  `long:"block-size" default:"32" description:"Index block size in bytes"`
	ScanChunkMB int  `long:"scan-chunk-mb" default:"1" description:"Scanner chunk size in MiB"`
	Threads     int  `long:"threads" description:"Worker goroutines (0 = GOMAXPROCS)"`
	RAM         bool `long:"ram" description:"Keep the block index in RAM instead of a memory-mapped temp file"`
	Max         bool `long:"max" description:"Maximize compression at the cost of speed"`
}

func (o engineOpt) toOptions() diffengine.Options {
	return diffengine.Options{
		BlockSize:     o.BlockSize,
		ScanChunkSize: o.ScanChunkMB << 20,
		Threads:       o.Threads,
		RAM:           o.RAM,
		Max:           o.Max,
	}
}

func readFile(p string) ([]byte, error) {
	return os.ReadFile(p)
}
