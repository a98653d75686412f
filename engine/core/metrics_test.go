package core

import (
	"testing"
	"time"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	if err := MetricsInitialize(); err != nil {
		t.Fatal(err)
	}
	*metricsState = MetricsState{}

	for i := 0; i < int(AVG_COUNT); i++ {
		MetricsUpdate(10 * time.Millisecond)
	}
	if got := MetricsFrameTime(); got < 9.999 || got > 10.001 {
		t.Fatalf("frame time average = %f, want 10", got)
	}

	// 101 frames of 10ms cross the one second boundary once.
	for i := int(AVG_COUNT); i < 101; i++ {
		MetricsUpdate(10 * time.Millisecond)
	}
	if fps := MetricsFPS(); fps != 100 {
		t.Fatalf("fps = %f, want 100", fps)
	}

	MetricsRebuild()
	MetricsRebuild()
	if MetricsRebuilds() != 2 {
		t.Fatalf("rebuilds = %d, want 2", MetricsRebuilds())
	}
}
