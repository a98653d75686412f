package vulkan

import (
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkcube/engine/core"
)

const khronosValidationLayer = "VK_LAYER_KHRONOS_validation"

// Validation owns the validation layer selection and the debug report
// callback that forwards driver messages to the logger.
type Validation struct {
	enabled  bool
	layers   []string
	callback vk.DebugReportCallback
}

func NewValidation(enabled bool) *Validation {
	v := &Validation{enabled: enabled}
	if enabled {
		v.layers = []string{khronosValidationLayer}
	}
	return v
}

func (v *Validation) Enabled() bool {
	return v.enabled
}

func (v *Validation) Layers() []string {
	return v.layers
}

func (v *Validation) InstanceExtensions() []string {
	if !v.enabled {
		return nil
	}
	return []string{vk.ExtDebugReportExtensionName}
}

// MissingLayers returns the required layers absent from available.
func MissingLayers(required, available []string) []string {
	var missing []string
	for _, r := range required {
		r = strings.TrimRight(r, "\x00")
		found := false
		for _, a := range available {
			if strings.TrimRight(a, "\x00") == r {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, r)
		}
	}
	return missing
}

// CheckAvailable verifies the instance offers every requested layer.
func (v *Validation) CheckAvailable() error {
	if !v.enabled {
		return nil
	}
	core.LogInfo("Validation layers enabled. Enumerating...")

	var count uint32
	if err := ResultError(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	properties := make([]vk.LayerProperties, count)
	if count > 0 {
		if err := ResultError(vk.EnumerateInstanceLayerProperties(&count, properties), "vkEnumerateInstanceLayerProperties"); err != nil {
			return err
		}
	}
	available := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		available = append(available, CString(properties[i].LayerName[:]))
	}

	if missing := MissingLayers(v.layers, available); len(missing) > 0 {
		return errors.Wrapf(core.ErrValidationLayerMissing, "%s", strings.Join(missing, ", "))
	}
	core.LogInfo("All required validation layers are present.")
	return nil
}

func (v *Validation) Attach(instance vk.Instance) error {
	if !v.enabled {
		return nil
	}
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var callback vk.DebugReportCallback
	if err := ResultError(vk.CreateDebugReportCallback(instance, &debugCreateInfo, nil, &callback), "vkCreateDebugReportCallback"); err != nil {
		return err
	}
	v.callback = callback
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func (v *Validation) Destroy(instance vk.Instance) {
	if v.callback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(instance, v.callback, nil)
		v.callback = vk.NullDebugReportCallback
	}
}

func debugReportLevel(flags vk.DebugReportFlags) core.LogLevel {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return core.ErrorLevel
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
		flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return core.WarnLevel
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		return core.DebugLevel
	}
	return core.InfoLevel
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	core.Logger().Log(debugReportLevel(flags), pMessage, "layer", pLayerPrefix, "code", messageCode)
	return vk.Bool32(vk.False)
}
