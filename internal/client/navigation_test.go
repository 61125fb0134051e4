package client

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// manualTimer captures delayed navigations so tests can fire them
type manualTimer struct {
	pending []func()
}

func (m *manualTimer) afterFunc(d time.Duration, f func()) {
	m.pending = append(m.pending, f)
}

func (m *manualTimer) fire() {
	pending := m.pending
	m.pending = nil
	for _, f := range pending {
		f()
	}
}

func newTestNavigator(delay time.Duration) (*SmartNavigator, *recordingRouter, *Store, *manualTimer) {
	router := &recordingRouter{}
	store := NewStore()
	timer := &manualTimer{}
	n := NewSmartNavigator(router, store, delay, testLogger())
	n.afterFunc = timer.afterFunc
	return n, router, store, timer
}

func TestSmartNavigatorDelayedNavigation(t *testing.T) {
	n, router, store, timer := newTestNavigator(100 * time.Millisecond)

	if !n.NavigateWith("/home", NavigateOptions{ShowLoading: true}) {
		t.Fatal("navigation was not accepted")
	}
	if !store.Snapshot().GlobalLoading {
		t.Error("loading flag should be raised during the delay")
	}
	if len(router.history()) != 0 {
		t.Error("router called before the delay elapsed")
	}
	if n.NavigateWith("/mission", NavigateOptions{}) {
		t.Error("second navigation should be dropped while one is in flight")
	}

	timer.fire()

	if got := router.history(); !reflect.DeepEqual(got, []string{"push:/home"}) {
		t.Errorf("router calls = %v", got)
	}
	if store.Snapshot().GlobalLoading {
		t.Error("loading flag should be cleared after navigation")
	}
	if n.IsNavigating() {
		t.Error("navigator still marked as navigating")
	}
}

func TestSmartNavigatorImmediate(t *testing.T) {
	n, router, _, timer := newTestNavigator(time.Second)

	var after bool
	n.NavigateWith("/home", NavigateOptions{Immediate: true, Replace: true, OnAfterNavigate: func() { after = true }})

	if got := router.history(); !reflect.DeepEqual(got, []string{"replace:/home"}) {
		t.Errorf("router calls = %v", got)
	}
	if len(timer.pending) != 0 {
		t.Error("immediate navigation should not be scheduled")
	}
	if !after {
		t.Error("OnAfterNavigate was not called")
	}
}

func TestSmartNavigatorBeforeHookCancels(t *testing.T) {
	n, router, store, _ := newTestNavigator(0)

	ok := n.NavigateWith("/home", NavigateOptions{
		ShowLoading:      true,
		OnBeforeNavigate: func() error { return errors.New("unsaved changes") },
	})
	if ok {
		t.Error("cancelled navigation reported as accepted")
	}
	if len(router.history()) != 0 || store.Snapshot().GlobalLoading {
		t.Error("cancelled navigation had side effects")
	}
	if !n.NavigateWith("/home", NavigateOptions{}) {
		t.Error("navigator should accept a new navigation after a cancel")
	}
}

func TestSmartNavigatorRedirectBypassesGuard(t *testing.T) {
	n, router, _, timer := newTestNavigator(time.Second)

	n.Navigate("/mission-success")
	n.Redirect("/")
	timer.fire()

	if got := router.history(); !reflect.DeepEqual(got, []string{"replace:/", "push:/mission-success"}) {
		t.Errorf("router calls = %v", got)
	}
}

func TestSmartNavigatorBack(t *testing.T) {
	n, router, _, timer := newTestNavigator(time.Second)

	n.Navigate("/home")
	if n.Back() {
		t.Error("Back should be dropped while navigating")
	}
	timer.fire()
	if !n.Back() {
		t.Error("Back should be accepted when idle")
	}
	if got := router.history(); !reflect.DeepEqual(got, []string{"push:/home", "back"}) {
		t.Errorf("router calls = %v", got)
	}
}
