package vulkan

import (
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
)

func TestVulkanResultString(t *testing.T) {
	if got := VulkanResultString(vk.ErrorOutOfDate, false); got != "VK_ERROR_OUT_OF_DATE_KHR" {
		t.Fatalf("short name = %q", got)
	}
	if got := VulkanResultString(vk.Suboptimal, true); !strings.HasPrefix(got, "VK_SUBOPTIMAL_KHR ") {
		t.Fatalf("extended name = %q", got)
	}
	if got := VulkanResultString(vk.Result(-12345), false); got != "VK_RESULT(-12345)" {
		t.Fatalf("unknown code = %q", got)
	}
}

func TestVulkanResultIsSuccess(t *testing.T) {
	for _, r := range []vk.Result{vk.Success, vk.Suboptimal, vk.Timeout, vk.NotReady} {
		if !VulkanResultIsSuccess(r) {
			t.Errorf("%s must be a success code", VulkanResultString(r, false))
		}
	}
	for _, r := range []vk.Result{vk.ErrorOutOfDate, vk.ErrorDeviceLost, vk.ErrorSurfaceLost} {
		if VulkanResultIsSuccess(r) {
			t.Errorf("%s must be an error code", VulkanResultString(r, false))
		}
	}
}

func TestResultError(t *testing.T) {
	if err := ResultError(vk.Success, "vkCreateFence"); err != nil {
		t.Fatalf("success must not produce an error, got %v", err)
	}
	err := ResultError(vk.ErrorDeviceLost, "vkQueueSubmit")
	if err == nil || !strings.Contains(err.Error(), "vkQueueSubmit") || !strings.Contains(err.Error(), "VK_ERROR_DEVICE_LOST") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestVulkanSafeStrings(t *testing.T) {
	in := []string{"VK_KHR_swapchain", "already\x00", ""}
	out := VulkanSafeStrings(in)
	want := []string{"VK_KHR_swapchain\x00", "already\x00", "\x00"}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %q, want %q", i, out[i], want[i])
		}
	}
	if in[0] != "VK_KHR_swapchain" {
		t.Error("input must not be modified")
	}
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "llvmpipe")
	if got := CString(name[:]); got != "llvmpipe" {
		t.Fatalf("CString = %q", got)
	}
	full := []byte("abc")
	if got := CString(full); got != "abc" {
		t.Fatalf("CString without terminator = %q", got)
	}
}
