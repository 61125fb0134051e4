package client

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultLoadingDelay is how long the loading indicator shows before a
// delayed navigation fires
const DefaultLoadingDelay = 150 * time.Millisecond

// NavigateOptions tunes a single navigation
type NavigateOptions struct {
	// Replace swaps the current page instead of pushing a new one
	Replace bool
	// Immediate skips the loading delay
	Immediate bool
	// ShowLoading raises the store's loading flag until the route changes
	ShowLoading bool
	// OnBeforeNavigate may cancel the navigation by returning an error
	OnBeforeNavigate func() error
	// OnAfterNavigate runs once the router has been called
	OnAfterNavigate func()
}

// SmartNavigator wraps a Router with a double-navigation guard and an
// optional loading delay. While one navigation is in flight, further
// requests are dropped.
type SmartNavigator struct {
	router Router
	store  *Store
	delay  time.Duration
	logger *slog.Logger

	afterFunc func(d time.Duration, f func())

	mu         sync.Mutex
	navigating bool
}

// NewSmartNavigator creates a navigator. store may be nil, in which case
// no loading flag is raised.
func NewSmartNavigator(router Router, store *Store, delay time.Duration, logger *slog.Logger) *SmartNavigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SmartNavigator{
		router: router,
		store:  store,
		delay:  delay,
		logger: logger,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// IsNavigating reports whether a navigation is in flight
func (n *SmartNavigator) IsNavigating() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigating
}

// Navigate pushes path with the loading indicator
func (n *SmartNavigator) Navigate(path string) {
	n.NavigateWith(path, NavigateOptions{ShowLoading: true})
}

// Redirect replaces the current page at once. Redirects are not subject to
// the double-navigation guard.
func (n *SmartNavigator) Redirect(path string) {
	n.router.Replace(path)
}

// Back returns to the previous page unless a navigation is in flight
func (n *SmartNavigator) Back() bool {
	if !n.begin("back") {
		return false
	}
	n.router.Back()
	n.end()
	return true
}

// NavigateWith performs a navigation and reports whether it was accepted
func (n *SmartNavigator) NavigateWith(path string, opts NavigateOptions) bool {
	if !n.begin(path) {
		return false
	}

	if opts.OnBeforeNavigate != nil {
		if err := opts.OnBeforeNavigate(); err != nil {
			n.logger.Debug("Navigation cancelled",
				slog.String("path", path),
				slog.String("error", err.Error()))
			n.end()
			return false
		}
	}

	showLoading := opts.ShowLoading && n.store != nil
	if showLoading {
		n.store.SetGlobalLoading(true)
	}

	run := func() {
		if opts.Replace {
			n.router.Replace(path)
		} else {
			n.router.Push(path)
		}
		if showLoading {
			n.store.SetGlobalLoading(false)
		}
		n.end()
		if opts.OnAfterNavigate != nil {
			opts.OnAfterNavigate()
		}
	}

	if opts.Immediate || n.delay <= 0 {
		run()
	} else {
		n.afterFunc(n.delay, run)
	}
	return true
}

func (n *SmartNavigator) begin(path string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.navigating {
		n.logger.Debug("Navigation ignored, another is in flight", slog.String("path", path))
		return false
	}
	n.navigating = true
	return true
}

func (n *SmartNavigator) end() {
	n.mu.Lock()
	n.navigating = false
	n.mu.Unlock()
}
