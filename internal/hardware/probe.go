// Package hardware samples host capabilities for the encode advisory.
package hardware

import "runtime"

// lowSpecCoreThreshold marks hosts with too few logical cores for
// comfortable video work. Encoding ideally wants 6-8 cores.
const lowSpecCoreThreshold = 4

// Capability is the advisory classification of the host. It never blocks
// an operation; it only drives a warning.
type Capability struct {
	CoreCount int  `json:"core_count"`
	LowSpec   bool `json:"low_spec"`
}

// Probe samples the logical processor count once.
func Probe() Capability {
	cores := runtime.NumCPU()
	return Capability{
		CoreCount: cores,
		LowSpec:   cores <= lowSpecCoreThreshold,
	}
}
