package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainBooting       = errors.New("swapchain resized or recreated, booting")
	ErrNoSuitableDevice       = errors.New("no physical device meets the requirements")
	ErrQueueFamilyNotFound    = errors.New("no queue family supports the requested capability")
	ErrValidationLayerMissing = errors.New("required validation layer is not available")
	ErrUnknown                = errors.New("unknown")
)
