package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestSamplerDescription(t *testing.T) {
	tests := []struct {
		name       string
		anisotropy bool
		max        float32
		enabled    vk.Bool32
		wantMax    float32
	}{
		{"enabled", true, 16, vk.True, 16},
		{"feature off", false, 16, vk.False, 1},
		{"bogus limit", true, 0, vk.False, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := SamplerDescription(tt.anisotropy, tt.max)
			if info.AnisotropyEnable != tt.enabled || info.MaxAnisotropy != tt.wantMax {
				t.Fatalf("anisotropy = %v/%v, want %v/%v", info.AnisotropyEnable, info.MaxAnisotropy, tt.enabled, tt.wantMax)
			}
			if info.MagFilter != vk.FilterLinear || info.MinFilter != vk.FilterLinear {
				t.Fatal("sampler must filter linearly")
			}
		})
	}
}
