package services

import (
	"context"
	"sync"

	"budget/internal/log"
)

// NoticeLevel is how a notice is presented.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeWarning NoticeLevel = "warning"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a user-facing message raised while handling an action.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Notices collects the notices raised during one request.
type Notices struct {
	mu   sync.Mutex
	list []Notice
}

func (n *Notices) add(notice Notice) {
	n.mu.Lock()
	n.list = append(n.list, notice)
	n.mu.Unlock()
}

// All returns the collected notices in order.
func (n *Notices) All() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, len(n.list))
	copy(out, n.list)
	return out
}

// Last returns the most recent notice.
func (n *Notices) Last() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return Notice{}, false
	}
	return n.list[len(n.list)-1], true
}

type noticesKey struct{}

// CollectNotices attaches a fresh collector to ctx.
func CollectNotices(ctx context.Context) (context.Context, *Notices) {
	n := &Notices{}
	return context.WithValue(ctx, noticesKey{}, n), n
}

// ContextNotifier stores notices in the collector found in ctx. Without
// one, notices are only logged.
type ContextNotifier struct{}

func (ContextNotifier) Notify(ctx context.Context, n Notice) {
	if c, ok := ctx.Value(noticesKey{}).(*Notices); ok {
		c.add(n)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentTracker).
		InfoContext(ctx, "Notice without collector", "level", string(n.Level), "message", n.Message)
}
