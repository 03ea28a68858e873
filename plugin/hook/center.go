package hook

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// ErrInterrupt stops a Trigger chain. Returned by a handler, it is passed back
// to the caller so it can cancel the action the event describes.
var ErrInterrupt = errors.New("hook interrupted")

// HookFn handles one event. It returns the (possibly replaced) payload.
// Errors other than ErrInterrupt are ignored and the chain continues.
type HookFn func(ctx context.Context, event string, data interface{}) (interface{}, error)

type handler struct {
	name     string
	priority int
	fn       HookFn
}

// HookCenter dispatches gameplay events to named handlers.
// Handlers with a lower priority run first; equal priorities keep
// registration order.
type HookCenter struct {
	mu       sync.RWMutex
	handlers map[string][]handler
}

// NewHookCenter returns an empty center.
func NewHookCenter() *HookCenter {
	return &HookCenter{handlers: make(map[string][]handler)}
}

// Register adds fn under name for event.
func (hc *HookCenter) Register(event string, priority int, name string, fn HookFn) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	list := hc.handlers[event]
	// Insert after every handler with priority <= the new one.
	at := len(list)
	for i, h := range list {
		if h.priority > priority {
			at = i
			break
		}
	}
	hc.handlers[event] = slices.Insert(list, at, handler{name: name, priority: priority, fn: fn})
}

// Unregister drops the handlers registered as name for event.
func (hc *HookCenter) Unregister(event, name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.drop(event, name)
}

// UnregisterAll drops name from every event.
func (hc *HookCenter) UnregisterAll(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for event := range hc.handlers {
		hc.drop(event, name)
	}
}

func (hc *HookCenter) drop(event, name string) {
	list := slices.DeleteFunc(hc.handlers[event], func(h handler) bool { return h.name == name })
	if len(list) == 0 {
		delete(hc.handlers, event)
		return
	}
	hc.handlers[event] = list
}

// Has reports whether event has any handler.
func (hc *HookCenter) Has(event string) bool {
	if hc == nil {
		return false
	}
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return len(hc.handlers[event]) > 0
}

// Handlers lists handler names per event in run order.
func (hc *HookCenter) Handlers() map[string][]string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	out := make(map[string][]string, len(hc.handlers))
	for event, list := range hc.handlers {
		names := make([]string, 0, len(list))
		for _, h := range list {
			names = append(names, h.name)
		}
		out[event] = names
	}
	return out
}

// Trigger runs the handlers of event in order, threading data through them.
// It stops at the first ErrInterrupt and returns it. A nil center returns
// data unchanged.
func (hc *HookCenter) Trigger(ctx context.Context, event string, data interface{}) (interface{}, error) {
	if hc == nil {
		return data, nil
	}
	hc.mu.RLock()
	list := slices.Clone(hc.handlers[event])
	hc.mu.RUnlock()

	for _, h := range list {
		out, err := h.fn(ctx, event, data)
		data = out
		if errors.Is(err, ErrInterrupt) {
			return data, err
		}
	}
	return data, nil
}
