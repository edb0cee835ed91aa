package scheduler

import "context"

// PermissionGate answers whether the process may register future notifications.
type PermissionGate interface {
	CanSchedule(ctx context.Context) (bool, error)
}

// StaticPermission is a PermissionGate with a fixed answer.
type StaticPermission bool

func (p StaticPermission) CanSchedule(context.Context) (bool, error) {
	return bool(p), nil
}
