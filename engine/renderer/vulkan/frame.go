package vulkan

import (
	gomath "math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/vkcube/engine/core"
)

// Window is what the scheduler needs from the windowing system while the
// swapchain is (re)created.
type Window interface {
	FramebufferSize() (uint32, uint32)
	// WaitWhileMinimized blocks while the framebuffer has a zero dimension.
	WaitWhileMinimized()
}

// FrameDevice submits work and owns the per-frame sync objects.
type FrameDevice interface {
	CreateFrameSlot() (*FrameSlot, error)
	DestroyFrameSlot(slot *FrameSlot)
	WaitForFence(fence *VulkanFence, timeoutNs uint64) error
	ResetFence(fence *VulkanFence) error
	SubmitGraphics(commandBuffer *VulkanCommandBuffer, wait, signal vk.Semaphore, fence *VulkanFence) error
	WaitIdle() error
}

// Swapchain is the recreatable presentable image chain.
type Swapchain interface {
	Create(window Window) error
	Destroy()
	AcquireNextImage(signal vk.Semaphore, timeoutNs uint64) (uint32, SwapchainStatus, error)
	Present(imageIndex uint32, wait vk.Semaphore) (SwapchainStatus, error)
	ImageCount() uint32
	ImageFormat() vk.SurfaceFormat
	Extent() vk.Extent2D
	ImageViews() []vk.ImageView
	GenerationID() uuid.UUID
}

// SwapchainDependent is any resource derived from the swapchain. Dependents
// are created in order after the swapchain and destroyed in reverse order
// before it.
type SwapchainDependent interface {
	Name() string
	Create(swapchain Swapchain) error
	Destroy()
}

// CommandRecorder allocates and pre-records one command buffer per
// swapchain image.
type CommandRecorder interface {
	Allocate(count uint32) ([]*VulkanCommandBuffer, error)
	Free(commandBuffers []*VulkanCommandBuffer)
	Record(commandBuffer *VulkanCommandBuffer, imageIndex uint32) error
}

// FrameUpdater writes per-image data right before the image's command buffer
// is submitted.
type FrameUpdater interface {
	Update(imageIndex uint32, extent vk.Extent2D, elapsed time.Duration) error
}

type FrameSlotState int

const (
	FrameSlotIdle FrameSlotState = iota
	FrameSlotSubmitted
	FrameSlotPresented
)

func (s FrameSlotState) String() string {
	switch s {
	case FrameSlotIdle:
		return "idle"
	case FrameSlotSubmitted:
		return "submitted"
	case FrameSlotPresented:
		return "presented"
	}
	return "unknown"
}

// FrameSlot is one frame in flight.
type FrameSlot struct {
	InFlight       *VulkanFence
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	State          FrameSlotState
}

const DefaultFramesInFlight uint32 = 2

type FrameSchedulerConfig struct {
	Device     FrameDevice
	Swapchain  Swapchain
	Window     Window
	Dependents []SwapchainDependent
	Recorder   CommandRecorder
	// Updater is optional.
	Updater        FrameUpdater
	FramesInFlight uint32
	// TimeoutNs bounds fence waits and image acquisition. Zero means no
	// limit.
	TimeoutNs uint64
}

type FrameStats struct {
	FramesDrawn  uint64
	Rebuilds     uint64
	FrameCounter uint64
}

// FrameScheduler runs the acquire, submit, present cycle over a ring of
// frame slots and rebuilds the swapchain and its dependents when the chain
// goes stale.
type FrameScheduler struct {
	device     FrameDevice
	swapchain  Swapchain
	window     Window
	dependents []SwapchainDependent
	recorder   CommandRecorder
	updater    FrameUpdater
	timeoutNs  uint64

	slots          []*FrameSlot
	commandBuffers []*VulkanCommandBuffer
	// Fences owned by slots, indexed by swapchain image.
	imagesInFlight []*VulkanFence
	built          bool

	frameCounter uint64
	framesDrawn  uint64
	rebuilds     uint64

	mu            sync.Mutex
	rebuildReason string
}

func NewFrameScheduler(config FrameSchedulerConfig) (*FrameScheduler, error) {
	if config.Device == nil || config.Swapchain == nil || config.Window == nil || config.Recorder == nil {
		return nil, errors.New("frame scheduler needs a device, a swapchain, a window and a recorder")
	}
	if config.FramesInFlight == 0 {
		return nil, errors.New("frames in flight must be at least 1")
	}
	timeout := config.TimeoutNs
	if timeout == 0 {
		timeout = gomath.MaxUint64
	}

	fs := &FrameScheduler{
		device:     config.Device,
		swapchain:  config.Swapchain,
		window:     config.Window,
		dependents: config.Dependents,
		recorder:   config.Recorder,
		updater:    config.Updater,
		timeoutNs:  timeout,
	}

	fs.slots = make([]*FrameSlot, 0, config.FramesInFlight)
	for i := uint32(0); i < config.FramesInFlight; i++ {
		slot, err := fs.device.CreateFrameSlot()
		if err != nil {
			fs.destroySlots()
			return nil, errors.Wrapf(err, "frame slot %d", i)
		}
		fs.slots = append(fs.slots, slot)
	}
	core.LogDebug("Created %d frame slots.", len(fs.slots))
	return fs, nil
}

// Build creates the swapchain, its dependents and the command buffers for
// the first time.
func (fs *FrameScheduler) Build() error {
	if fs.built {
		return nil
	}
	fs.window.WaitWhileMinimized()
	return fs.buildSwapchainResources()
}

// buildSwapchainResources creates everything derived from the surface. On
// failure whatever was created is destroyed again before returning.
func (fs *FrameScheduler) buildSwapchainResources() error {
	if err := fs.swapchain.Create(fs.window); err != nil {
		return errors.Wrap(err, "swapchain")
	}

	for i, dep := range fs.dependents {
		if err := dep.Create(fs.swapchain); err != nil {
			for j := i - 1; j >= 0; j-- {
				fs.dependents[j].Destroy()
			}
			fs.swapchain.Destroy()
			return errors.Wrap(err, dep.Name())
		}
	}

	unwind := func() {
		for j := len(fs.dependents) - 1; j >= 0; j-- {
			fs.dependents[j].Destroy()
		}
		fs.swapchain.Destroy()
	}

	count := fs.swapchain.ImageCount()
	commandBuffers, err := fs.recorder.Allocate(count)
	if err != nil {
		unwind()
		return errors.Wrap(err, "command buffers")
	}
	for i, cb := range commandBuffers {
		if err := fs.recorder.Record(cb, uint32(i)); err != nil {
			fs.recorder.Free(commandBuffers)
			unwind()
			return errors.Wrapf(err, "recording command buffer %d", i)
		}
	}

	fs.commandBuffers = commandBuffers
	fs.imagesInFlight = make([]*VulkanFence, count)
	fs.built = true
	return nil
}

func (fs *FrameScheduler) teardownSwapchainResources() {
	if !fs.built {
		return
	}
	fs.recorder.Free(fs.commandBuffers)
	fs.commandBuffers = nil
	for i := len(fs.dependents) - 1; i >= 0; i-- {
		fs.dependents[i].Destroy()
	}
	fs.swapchain.Destroy()
	fs.imagesInFlight = nil
	fs.built = false
}

// RequestRebuild schedules a rebuild at the start of the next frame. It is
// safe to call from any goroutine.
func (fs *FrameScheduler) RequestRebuild(reason string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.rebuildReason == "" {
		fs.rebuildReason = reason
	}
}

func (fs *FrameScheduler) takeRebuildRequest() string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	reason := fs.rebuildReason
	fs.rebuildReason = ""
	return reason
}

// Rebuild drains the device, destroys every swapchain derived resource and
// creates it again against the current surface. Frame slots survive.
func (fs *FrameScheduler) Rebuild(reason string) error {
	var oldGeneration uuid.UUID
	if fs.built {
		oldGeneration = fs.swapchain.GenerationID()
	}

	fs.window.WaitWhileMinimized()

	if err := fs.device.WaitIdle(); err != nil {
		return err
	}

	fs.teardownSwapchainResources()
	if err := fs.buildSwapchainResources(); err != nil {
		return err
	}

	fs.rebuilds++
	core.MetricsRebuild()

	extent := fs.swapchain.Extent()
	core.Logger().Info("Swapchain rebuilt",
		"reason", reason,
		"old_generation", oldGeneration,
		"new_generation", fs.swapchain.GenerationID(),
		"images", fs.swapchain.ImageCount(),
		"width", extent.Width,
		"height", extent.Height)
	return nil
}

// rebuildOrDefer rebuilds now, or keeps the request pending while the
// surface has no drawable area.
func (fs *FrameScheduler) rebuildOrDefer(reason string) error {
	err := fs.Rebuild(reason)
	if errors.Is(err, core.ErrSwapchainBooting) {
		core.LogDebug("Rebuild deferred: %s", err)
		fs.RequestRebuild(reason)
		return nil
	}
	return err
}

// DrawFrame renders and presents one frame. Out of date and suboptimal
// swapchains are rebuilt here and never returned as errors.
func (fs *FrameScheduler) DrawFrame(elapsed time.Duration) error {
	if reason := fs.takeRebuildRequest(); reason != "" || !fs.built {
		if reason == "" {
			reason = "swapchain missing"
		}
		if err := fs.rebuildOrDefer(reason); err != nil {
			return err
		}
		if !fs.built {
			return nil
		}
	}

	current := fs.frameCounter % uint64(len(fs.slots))
	slot := fs.slots[current]

	// Bounds the number of frames in flight to the number of slots.
	if err := fs.device.WaitForFence(slot.InFlight, fs.timeoutNs); err != nil {
		return errors.Wrapf(err, "waiting on frame slot %d", current)
	}
	slot.State = FrameSlotIdle

	imageIndex, acquireStatus, err := fs.swapchain.AcquireNextImage(slot.ImageAvailable, fs.timeoutNs)
	if err != nil {
		return err
	}
	if acquireStatus == SwapchainOutOfDate {
		return fs.rebuildOrDefer("acquire: " + acquireStatus.String())
	}
	if int(imageIndex) >= len(fs.commandBuffers) {
		return errors.AssertionFailedf("acquired image %d but only %d command buffers exist", imageIndex, len(fs.commandBuffers))
	}

	// Another slot may still be rendering to this image.
	if inFlight := fs.imagesInFlight[imageIndex]; inFlight != nil && inFlight != slot.InFlight {
		if err := fs.device.WaitForFence(inFlight, fs.timeoutNs); err != nil {
			return errors.Wrapf(err, "waiting on image %d", imageIndex)
		}
	}
	fs.imagesInFlight[imageIndex] = slot.InFlight

	// The fence is only reset once the frame is certain to be submitted.
	if err := fs.device.ResetFence(slot.InFlight); err != nil {
		return err
	}

	if fs.updater != nil {
		if err := fs.updater.Update(imageIndex, fs.swapchain.Extent(), elapsed); err != nil {
			return err
		}
	}

	commandBuffer := fs.commandBuffers[imageIndex]
	if err := fs.device.SubmitGraphics(commandBuffer, slot.ImageAvailable, slot.RenderFinished, slot.InFlight); err != nil {
		return err
	}
	commandBuffer.UpdateSubmitted()
	slot.State = FrameSlotSubmitted

	presentStatus, err := fs.swapchain.Present(imageIndex, slot.RenderFinished)
	if err != nil {
		return err
	}
	slot.State = FrameSlotPresented

	fs.frameCounter++
	fs.framesDrawn++

	if acquireStatus == SwapchainSuboptimal {
		return fs.rebuildOrDefer("acquire: " + acquireStatus.String())
	}
	if presentStatus != SwapchainOptimal {
		return fs.rebuildOrDefer("present: " + presentStatus.String())
	}
	return nil
}

// Destroy drains the device, then releases the swapchain resources and the
// frame slots.
func (fs *FrameScheduler) Destroy() {
	if err := fs.device.WaitIdle(); err != nil {
		core.LogError("failed to wait for the device before shutdown: %s", err)
	}
	fs.teardownSwapchainResources()
	fs.destroySlots()
}

func (fs *FrameScheduler) destroySlots() {
	for _, slot := range fs.slots {
		fs.device.DestroyFrameSlot(slot)
	}
	fs.slots = nil
}

func (fs *FrameScheduler) Stats() FrameStats {
	return FrameStats{
		FramesDrawn:  fs.framesDrawn,
		Rebuilds:     fs.rebuilds,
		FrameCounter: fs.frameCounter,
	}
}

func (fs *FrameScheduler) CommandBufferCount() int {
	return len(fs.commandBuffers)
}

func (fs *FrameScheduler) SlotStates() []FrameSlotState {
	states := make([]FrameSlotState, len(fs.slots))
	for i, s := range fs.slots {
		states[i] = s.State
	}
	return states
}
