package app

import "reflect"

// Manage は値をその型をキーとしてアプリケーションに保持させる。
// 同じ型の値を再登録した場合は上書きする。
func (a *App) Manage(v any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.managed[reflect.TypeOf(v)] = v
}

// ManagedState は Manage で登録された型 T の値を返す。
func ManagedState[T any](a *App) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var zero T
	v, ok := a.managed[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
