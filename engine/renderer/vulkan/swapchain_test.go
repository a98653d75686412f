package vulkan

import (
	gomath "math"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestChooseSurfaceFormat(t *testing.T) {
	bgraSrgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	rgba := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	bgraSrgbFormat := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	tests := []struct {
		name    string
		formats []vk.SurfaceFormat
		want    vk.SurfaceFormat
	}{
		{"single undefined accepts anything", []vk.SurfaceFormat{{Format: vk.FormatUndefined}}, bgraSrgb},
		{"preferred among others", []vk.SurfaceFormat{rgba, bgraSrgbFormat, bgraSrgb}, bgraSrgb},
		{"first entry otherwise", []vk.SurfaceFormat{rgba, bgraSrgbFormat}, rgba},
		{"empty list", nil, bgraSrgb},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChooseSurfaceFormat(tt.formats)
			if got.Format != tt.want.Format || got.ColorSpace != tt.want.ColorSpace {
				t.Fatalf("got %v/%v, want %v/%v", got.Format, got.ColorSpace, tt.want.Format, tt.want.ColorSpace)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		name  string
		modes []vk.PresentMode
		want  vk.PresentMode
	}{
		{"mailbox wins", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, vk.PresentModeMailbox},
		{"immediate over fifo", []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, vk.PresentModeImmediate},
		{"mailbox over immediate", []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox}, vk.PresentModeMailbox},
		{"fifo alone", []vk.PresentMode{vk.PresentModeFifo}, vk.PresentModeFifo},
		{"fifo relaxed falls back to fifo", []vk.PresentMode{vk.PresentModeFifoRelaxed}, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChoosePresentMode(tt.modes); got != tt.want {
				t.Fatalf("got %s, want %s", presentModeName(got), presentModeName(tt.want))
			}
		})
	}
}

func TestChooseExtent(t *testing.T) {
	bounded := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: gomath.MaxUint32, Height: gomath.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	concrete := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}

	tests := []struct {
		name          string
		caps          vk.SurfaceCapabilities
		width, height uint32
		want          vk.Extent2D
	}{
		{"sentinel uses window size", bounded, 1024, 768, vk.Extent2D{Width: 1024, Height: 768}},
		{"sentinel clamps above max", bounded, 8000, 5000, vk.Extent2D{Width: 4096, Height: 4096}},
		{"sentinel clamps below min", bounded, 0, 0, vk.Extent2D{Width: 1, Height: 1}},
		{"current extent wins", concrete, 1920, 1080, vk.Extent2D{Width: 800, Height: 600}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChooseExtent(tt.caps, tt.width, tt.height)
			if got.Width != tt.want.Width || got.Height != tt.want.Height {
				t.Fatalf("got %dx%d, want %dx%d", got.Width, got.Height, tt.want.Width, tt.want.Height)
			}
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max uint32
		want     uint32
	}{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
		{1, 2, 2},
	}
	for _, tt := range tests {
		got := ChooseImageCount(vk.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max})
		if got != tt.want {
			t.Errorf("min=%d max=%d: got %d, want %d", tt.min, tt.max, got, tt.want)
		}
	}
}

func TestChooseSharingMode(t *testing.T) {
	mode, families := ChooseSharingMode(0, 0)
	if mode != vk.SharingModeExclusive || families != nil {
		t.Fatalf("shared family must be exclusive, got %v %v", mode, families)
	}
	mode, families = ChooseSharingMode(0, 2)
	if mode != vk.SharingModeConcurrent || len(families) != 2 || families[0] != 0 || families[1] != 2 {
		t.Fatalf("distinct families must be concurrent, got %v %v", mode, families)
	}
}

func TestPlanSwapchainIsDeterministic(t *testing.T) {
	support := VulkanSwapchainSupportInfo{
		Capabilities: vk.SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  4,
			CurrentExtent:  vk.Extent2D{Width: 1280, Height: 720},
			MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
		},
		Formats:      []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo},
	}
	first := PlanSwapchain(support, 1280, 720, 0, 0)
	second := PlanSwapchain(support, 1280, 720, 0, 0)
	if first.ImageCount != second.ImageCount || first.Format != second.Format || first.Extent != second.Extent {
		t.Fatalf("plans differ: %+v vs %+v", first, second)
	}
	if first.ImageCount != 3 {
		t.Fatalf("image count = %d, want 3", first.ImageCount)
	}
	if first.SharingMode != vk.SharingModeExclusive {
		t.Fatalf("expected exclusive sharing")
	}
}

func TestSwapchainStatus(t *testing.T) {
	tests := []struct {
		result  vk.Result
		want    SwapchainStatus
		wantErr bool
	}{
		{vk.Success, SwapchainOptimal, false},
		{vk.Suboptimal, SwapchainSuboptimal, false},
		{vk.ErrorOutOfDate, SwapchainOutOfDate, false},
		{vk.ErrorDeviceLost, SwapchainOptimal, true},
		{vk.ErrorSurfaceLost, SwapchainOptimal, true},
	}
	for _, tt := range tests {
		got, err := swapchainStatus(tt.result, "present")
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: unexpected error state %v", VulkanResultString(tt.result, false), err)
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", VulkanResultString(tt.result, false), got, tt.want)
		}
	}
}

func TestSwapchainSupportAdequate(t *testing.T) {
	if (VulkanSwapchainSupportInfo{}).Adequate() {
		t.Fatal("empty support must not be adequate")
	}
	s := VulkanSwapchainSupportInfo{
		Formats:      []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Unorm}},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo},
	}
	if !s.Adequate() {
		t.Fatal("one format and one mode is adequate")
	}
}

func TestLockedPresentReportsResult(t *testing.T) {
	tests := []struct {
		name    string
		result  vk.Result
		want    SwapchainStatus
		wantErr bool
	}{
		{"optimal", vk.Success, SwapchainOptimal, false},
		{"suboptimal", vk.Suboptimal, SwapchainSuboptimal, false},
		{"out of date", vk.ErrorOutOfDate, SwapchainOutOfDate, false},
		{"device lost", vk.ErrorDeviceLost, SwapchainOptimal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewVulkanLockPool()
			pool.SetQueueFamily(2)
			calls := 0
			got, err := lockedPresent(pool, 2, func() vk.Result {
				calls++
				return tt.result
			})
			if calls != 1 {
				t.Fatalf("present called %d times, want 1", calls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLockedPresentHoldsFamilyLock(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(3)
	held := false
	if _, err := lockedPresent(pool, 3, func() vk.Result {
		held = !pool.queueLock(3).TryLock()
		return vk.Success
	}); err != nil {
		t.Fatalf("present: %v", err)
	}
	if !held {
		t.Error("present ran without holding the queue family lock")
	}
	if !pool.queueLock(3).TryLock() {
		t.Error("queue family lock was not released after present")
	}
}
