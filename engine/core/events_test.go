package core

import "testing"

func TestEventFireStopsAtFirstHandler(t *testing.T) {
	EventSystemInitialize()
	defer EventSystemShutdown()

	var calls []string
	EventRegister(EVENT_CODE_RESIZED, func(context EventContext) bool {
		calls = append(calls, "first")
		return true
	})
	EventRegister(EVENT_CODE_RESIZED, func(context EventContext) bool {
		calls = append(calls, "second")
		return false
	})

	handled := EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 10, WindowHeight: 20}})
	if !handled {
		t.Fatal("expected event to be handled")
	}
	if len(calls) != 1 || calls[0] != "first" {
		t.Fatalf("unexpected listener calls: %v", calls)
	}
}

func TestEventFireWithoutListeners(t *testing.T) {
	EventSystemInitialize()
	defer EventSystemShutdown()

	if EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}) {
		t.Fatal("expected unhandled event")
	}
}

func TestEventSystemNotInitialized(t *testing.T) {
	_ = EventSystemShutdown()
	if EventRegister(EVENT_CODE_KEY_PRESSED, func(EventContext) bool { return true }) {
		t.Fatal("register must fail before initialization")
	}
	if EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED}) {
		t.Fatal("fire must fail before initialization")
	}
}

func TestInputProcessKeyFiresOnChange(t *testing.T) {
	EventSystemInitialize()
	defer EventSystemShutdown()
	if err := InputInitialize(); err != nil {
		t.Fatal(err)
	}
	defer InputShutdown()

	var pressed, released int
	EventRegister(EVENT_CODE_KEY_PRESSED, func(context EventContext) bool {
		if ke := context.Data.(*KeyEvent); ke.KeyCode == KEY_R {
			pressed++
		}
		return true
	})
	EventRegister(EVENT_CODE_KEY_RELEASED, func(context EventContext) bool {
		released++
		return true
	})

	InputProcessKey(KEY_R, true)
	InputProcessKey(KEY_R, true)
	if !InputIsKeyDown(KEY_R) {
		t.Fatal("expected R to be down")
	}
	InputUpdate()
	if !InputWasKeyDown(KEY_R) {
		t.Fatal("expected R to have been down last frame")
	}
	InputProcessKey(KEY_R, false)

	if pressed != 1 || released != 1 {
		t.Fatalf("pressed=%d released=%d, want 1/1", pressed, released)
	}
}
