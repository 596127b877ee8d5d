package utils

// Guard runs a cleanup function when the enclosing function returns without declaring success. It
// is used when a function acquires a resource part way through and must release it on every later
// early-return error:
//
//	guard := NewGuard(func() { sink.Close(ctx) })
//	defer guard.OnFail()
//	if err := step(); err != nil { return err }
//	guard.Success()
//	return nil
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a Guard that calls onFailCleanup from OnFail unless Success was called.
func NewGuard(onFailCleanup func()) *Guard {
	ret := &Guard{}
	ret.OnFail = func() {
		if !ret.success {
			onFailCleanup()
		}
	}
	return ret
}

// Success declares the function succeeded; OnFail becomes a no-op.
func (guard *Guard) Success() {
	guard.success = true
}
