package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

// QueueFamily is the part of a physical device's queue family description
// that queue selection depends on.
type QueueFamily struct {
	Index           uint32
	Flags           vk.QueueFlags
	QueueCount      uint32
	SupportsPresent bool
}

func (f QueueFamily) Has(bit vk.QueueFlagBits) bool {
	return f.QueueCount > 0 && vk.QueueFlagBits(f.Flags)&bit == bit
}

// QueueFamilyIndices holds one family index per capability, -1 when the
// capability was not requested.
type QueueFamilyIndices struct {
	Graphics int32
	Present  int32
	Compute  int32
	Transfer int32
}

func NewQueueFamilyIndices() QueueFamilyIndices {
	return QueueFamilyIndices{Graphics: -1, Present: -1, Compute: -1, Transfer: -1}
}

// Unique lists the distinct resolved family indices in graphics, present,
// compute, transfer order.
func (q QueueFamilyIndices) Unique() []uint32 {
	return UniqueQueueFamilies(q.Graphics, q.Present, q.Compute, q.Transfer)
}

func queueCapabilityName(capability vk.QueueFlagBits) string {
	switch capability {
	case vk.QueueGraphicsBit:
		return "graphics"
	case vk.QueueComputeBit:
		return "compute"
	case vk.QueueTransferBit:
		return "transfer"
	case vk.QueueSparseBindingBit:
		return "sparse binding"
	}
	return "unknown"
}

// ResolveQueueFamily picks the family serving a single capability. Compute
// prefers a family without graphics, transfer prefers a family with neither
// graphics nor compute. Otherwise the first family carrying the bit wins.
func ResolveQueueFamily(families []QueueFamily, capability vk.QueueFlagBits) (uint32, error) {
	switch capability {
	case vk.QueueComputeBit:
		for _, f := range families {
			if f.Has(vk.QueueComputeBit) && !f.Has(vk.QueueGraphicsBit) {
				return f.Index, nil
			}
		}
	case vk.QueueTransferBit:
		for _, f := range families {
			if f.Has(vk.QueueTransferBit) && !f.Has(vk.QueueGraphicsBit) && !f.Has(vk.QueueComputeBit) {
				return f.Index, nil
			}
		}
	}
	for _, f := range families {
		if f.Has(capability) {
			return f.Index, nil
		}
	}
	return 0, errors.Wrapf(core.ErrQueueFamilyNotFound, "capability %s", queueCapabilityName(capability))
}

// ResolvePresentFamily prefers the graphics family when it can present, to
// keep the swapchain in exclusive sharing mode.
func ResolvePresentFamily(families []QueueFamily, graphics int32) (uint32, error) {
	for _, f := range families {
		if int32(f.Index) == graphics && f.SupportsPresent && f.QueueCount > 0 {
			return f.Index, nil
		}
	}
	for _, f := range families {
		if f.SupportsPresent && f.QueueCount > 0 {
			return f.Index, nil
		}
	}
	return 0, errors.Wrap(core.ErrQueueFamilyNotFound, "capability present")
}

// ResolveQueueFamilies resolves every capability in requested, plus the
// present family when present is true. Any unsatisfied capability is fatal.
func ResolveQueueFamilies(families []QueueFamily, requested vk.QueueFlags, present bool) (QueueFamilyIndices, error) {
	indices := NewQueueFamilyIndices()
	targets := []struct {
		bit vk.QueueFlagBits
		out *int32
	}{
		{vk.QueueGraphicsBit, &indices.Graphics},
		{vk.QueueComputeBit, &indices.Compute},
		{vk.QueueTransferBit, &indices.Transfer},
	}
	for _, t := range targets {
		if vk.QueueFlagBits(requested)&t.bit == 0 {
			continue
		}
		idx, err := ResolveQueueFamily(families, t.bit)
		if err != nil {
			return NewQueueFamilyIndices(), err
		}
		*t.out = int32(idx)
	}
	if present {
		idx, err := ResolvePresentFamily(families, indices.Graphics)
		if err != nil {
			return NewQueueFamilyIndices(), err
		}
		indices.Present = int32(idx)
	}
	return indices, nil
}

// UniqueQueueFamilies drops unset (-1) and repeated indices, keeping the
// first occurrence order.
func UniqueQueueFamilies(indices ...int32) []uint32 {
	seen := make(map[int32]bool, len(indices))
	out := make([]uint32, 0, len(indices))
	for _, i := range indices {
		if i < 0 || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, uint32(i))
	}
	return out
}

// QueueCreateInfos builds one create info, with a single queue, per distinct
// family.
func QueueCreateInfos(indices QueueFamilyIndices) []vk.DeviceQueueCreateInfo {
	unique := indices.Unique()
	infos := make([]vk.DeviceQueueCreateInfo, len(unique))
	for i, family := range unique {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}
