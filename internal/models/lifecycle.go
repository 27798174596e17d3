package models

import "errors"

// Lifecycle replaces hard deletes: rows are only ever deactivated.
type Lifecycle string

const (
	Active      Lifecycle = "active"
	Deactivated Lifecycle = "deactivated"
)

var ErrAlreadyDeactivated = errors.New("already deactivated")

func (l Lifecycle) IsActive() bool { return l == Active }

// Deactivate is the only transition. It fails when l is not Active.
func (l Lifecycle) Deactivate() (Lifecycle, error) {
	if l != Active {
		return l, ErrAlreadyDeactivated
	}
	return Deactivated, nil
}
