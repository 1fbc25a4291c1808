package utils

import (
	"errors"
	"fmt"
)

// ErrContract is matched by every ContractError
var ErrContract = errors.New("contract violation")

// ContractError reports a violated precondition. It is raised with panic, never
// returned, so that programming errors stay distinguishable from runtime failures.
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string { return "contract violation: " + e.Msg }

func (e *ContractError) Is(target error) bool { return target == ErrContract }

func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(&ContractError{Msg: fmt.Sprintf(format, args...)})
	}
}

// CatchContract runs f and converts a ContractError panic into an error.
// Any other panic is re-raised.
func CatchContract(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*ContractError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()
	f()
	return
}
