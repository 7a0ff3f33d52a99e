package profile

// Tuned for the grouper cpu table:
// 51 102 204 340 475 640 760 860 1000 1100 1200 MHz,
// 1300 MHz (single core/OC), 1400 and 1500 MHz (OC).
var table = [Max]Profile{
	PowerSave: {
		ID:                 PowerSave,
		BoostPulseDuration: 0,
		GoHiSpeedLoad:      95,
		GoHiSpeedLoadIdle:  95,
		HiSpeedFreq:        760000,
		HiSpeedFreqOC:      760000,
		HiSpeedFreqIdle:    760000,
		IOIsBusy:           false,
		MinSampleTime:      60000,
		TargetLoads:        Loads(95),
		TargetLoadsIdle:    Loads(95),
		MaxCPUFreq:         1100000,
		MinCPUFreq:         51000,
		MinCPUFreqIdle:     51000,
		MaxCPUOnline:       2,
		MinCPUOnline:       1,
	},
	Balanced: {
		ID:                 Balanced,
		BoostPulseDuration: 200000,
		GoHiSpeedLoad:      95,
		GoHiSpeedLoadIdle:  95,
		HiSpeedFreq:        1000000,
		HiSpeedFreqOC:      1200000,
		HiSpeedFreqIdle:    760000,
		IOIsBusy:           true,
		MinSampleTime:      40000,
		TargetLoads:        Loads(70, 1200000, 80, 1300000, 85, 1400000, 90),
		TargetLoadsIdle:    Loads(90, 1200000, 99),
		MaxCPUFreq:         -1,
		MinCPUFreq:         51000,
		MinCPUFreqIdle:     51000,
		MaxCPUOnline:       4,
		MinCPUOnline:       1,
	},
	HighPerformance: {
		ID:                 HighPerformance,
		BoostPulseDuration: 1000000,
		GoHiSpeedLoad:      75,
		GoHiSpeedLoadIdle:  75,
		HiSpeedFreq:        1200000,
		HiSpeedFreqOC:      1400000,
		HiSpeedFreqIdle:    1000000,
		IOIsBusy:           true,
		MinSampleTime:      40000,
		TargetLoads:        Loads(70),
		TargetLoadsIdle:    Loads(70),
		MaxCPUFreq:         -1,
		MinCPUFreq:         1000000,
		MinCPUFreqIdle:     475000,
		MaxCPUOnline:       4,
		MinCPUOnline:       4,
	},
	BiasPowerSave: {
		ID:                 BiasPowerSave,
		BoostPulseDuration: 100000,
		GoHiSpeedLoad:      95,
		GoHiSpeedLoadIdle:  95,
		HiSpeedFreq:        860000,
		HiSpeedFreqOC:      1100000,
		HiSpeedFreqIdle:    640000,
		IOIsBusy:           true,
		MinSampleTime:      40000,
		TargetLoads:        Loads(70, 1200000, 85, 1300000, 90, 1400000, 95),
		TargetLoadsIdle:    Loads(95),
		MaxCPUFreq:         -1,
		MinCPUFreq:         51000,
		MinCPUFreqIdle:     51000,
		MaxCPUOnline:       4,
		MinCPUOnline:       1,
	},
	BiasPerformance: {
		ID:                 BiasPerformance,
		BoostPulseDuration: 500000,
		GoHiSpeedLoad:      90,
		GoHiSpeedLoadIdle:  90,
		HiSpeedFreq:        1100000,
		HiSpeedFreqOC:      1300000,
		HiSpeedFreqIdle:    860000,
		IOIsBusy:           true,
		MinSampleTime:      40000,
		TargetLoads:        Loads(70, 1200000, 75, 1300000, 80, 1400000, 90),
		TargetLoadsIdle:    Loads(90),
		MaxCPUFreq:         -1,
		MinCPUFreq:         51000,
		MinCPUFreqIdle:     51000,
		MaxCPUOnline:       4,
		MinCPUOnline:       2,
	},
}
