package domain

import "context"

// HookEvent names a point in a document's lifecycle.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	AfterApprove HookEvent = "after_approve"
)

// Hook observes a document. A before-hook error rejects the operation; an
// after-hook runs once the transaction has committed and cannot undo it.
type Hook[T any] func(ctx context.Context, doc T) error

// HookRegistry holds the hooks of one document type, in registration order.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{hooks: make(map[HookEvent][]Hook[T])}
}

func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run calls the hooks of event and stops at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, doc T) error {
	for _, h := range r.hooks[event] {
		if err := h(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (r *HookRegistry[T]) OnBeforeCreate(hook Hook[T]) { r.On(BeforeCreate, hook) }
func (r *HookRegistry[T]) OnAfterCreate(hook Hook[T])  { r.On(AfterCreate, hook) }
func (r *HookRegistry[T]) OnAfterApprove(hook Hook[T]) { r.On(AfterApprove, hook) }

func (r *HookRegistry[T]) RunBeforeCreate(ctx context.Context, doc T) error {
	return r.Run(ctx, BeforeCreate, doc)
}

func (r *HookRegistry[T]) RunAfterCreate(ctx context.Context, doc T) error {
	return r.Run(ctx, AfterCreate, doc)
}

func (r *HookRegistry[T]) RunAfterApprove(ctx context.Context, doc T) error {
	return r.Run(ctx, AfterApprove, doc)
}
