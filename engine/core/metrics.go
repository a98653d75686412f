package core

import (
	"sync"
	"time"

	"github.com/spaghettifunk/vkcube/engine/containers"
)

const AVG_COUNT uint8 = 30

type MetricsState struct {
	// frame times in ms over the last AVG_COUNT frames
	frameTimes         *containers.RingQueue[float64]
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
	Rebuilds           uint64
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
	return nil
}

func MetricsUpdate(frameElapsed time.Duration) {
	if metricsState.frameTimes == nil {
		metricsState.frameTimes = containers.NewRingQueue[float64](int(AVG_COUNT))
	}

	// Calculate frame ms average
	frameMS := float64(frameElapsed) / float64(time.Millisecond)
	metricsState.frameTimes.Push(frameMS)
	var sum float64
	metricsState.frameTimes.Each(func(ms float64) {
		sum += ms
	})
	metricsState.MSavg = sum / float64(metricsState.frameTimes.Len())

	// Calculate Frames per second.
	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	// Count all Frames.
	metricsState.Frames++
}

func MetricsRebuild() {
	if metricsState == nil {
		return
	}
	metricsState.Rebuilds++
}

func MetricsFPS() float64 {
	return metricsState.FPS
}

func MetricsFrameTime() float64 {
	return metricsState.MSavg
}

func MetricsFrame() (float64, float64) {
	return metricsState.FPS, metricsState.MSavg
}

func MetricsRebuilds() uint64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.Rebuilds
}
