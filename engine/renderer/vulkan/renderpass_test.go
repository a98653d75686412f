package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestRenderPassDescriptionWithDepth(t *testing.T) {
	layout := RenderPassDescription(vk.FormatB8g8r8a8Unorm, vk.FormatD32Sfloat)

	if len(layout.Attachments) != 2 {
		t.Fatalf("got %d attachments, want 2", len(layout.Attachments))
	}
	color := layout.Attachments[0]
	if color.Format != vk.FormatB8g8r8a8Unorm || color.LoadOp != vk.AttachmentLoadOpClear ||
		color.StoreOp != vk.AttachmentStoreOpStore || color.FinalLayout != vk.ImageLayoutPresentSrc {
		t.Fatalf("unexpected color attachment: %+v", color)
	}
	depth := layout.Attachments[1]
	if depth.Format != vk.FormatD32Sfloat || depth.LoadOp != vk.AttachmentLoadOpClear ||
		depth.StoreOp != vk.AttachmentStoreOpDontCare || depth.FinalLayout != vk.ImageLayoutDepthStencilAttachmentOptimal {
		t.Fatalf("unexpected depth attachment: %+v", depth)
	}
	if layout.DepthReference == nil || layout.DepthReference.Attachment != 1 {
		t.Fatal("depth reference must point at attachment 1")
	}
	if layout.ColorReference.Attachment != 0 || layout.ColorReference.Layout != vk.ImageLayoutColorAttachmentOptimal {
		t.Fatalf("unexpected color reference: %+v", layout.ColorReference)
	}

	dep := layout.Dependency
	if dep.SrcSubpass != vk.SubpassExternal || dep.DstSubpass != 0 {
		t.Fatalf("dependency must run from the external subpass into subpass 0: %+v", dep)
	}
	colorOutput := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	if dep.SrcStageMask&colorOutput == 0 || dep.DstStageMask&colorOutput == 0 {
		t.Fatal("dependency must gate on color attachment output")
	}
	rw := vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
	if dep.DstAccessMask&rw != rw {
		t.Fatal("dependency must cover color attachment read and write")
	}
}

func TestRenderPassDescriptionColorOnly(t *testing.T) {
	layout := RenderPassDescription(vk.FormatB8g8r8a8Unorm, vk.FormatUndefined)
	if len(layout.Attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(layout.Attachments))
	}
	if layout.DepthReference != nil {
		t.Fatal("color only pass must not reference a depth attachment")
	}
	want := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	if layout.Dependency.SrcStageMask != want || layout.Dependency.DstStageMask != want {
		t.Fatalf("unexpected stage masks %v %v", layout.Dependency.SrcStageMask, layout.Dependency.DstStageMask)
	}
}

func TestLayoutTransition(t *testing.T) {
	if _, ok := LayoutTransition(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); !ok {
		t.Fatal("undefined to transfer dst must be supported")
	}
	tr, ok := LayoutTransition(vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	if !ok {
		t.Fatal("transfer dst to shader read must be supported")
	}
	if tr.DstStage != vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit) {
		t.Fatalf("shader read transition must wait in the fragment stage")
	}
	if _, ok := LayoutTransition(vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc); ok {
		t.Fatal("unsupported transition reported as supported")
	}
}
