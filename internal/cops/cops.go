// Package cops contains the built-in cops.
package cops

import (
	"fmt"

	"github.com/jward/copper/internal/cop"
)

// Defaults returns a fresh instance of every built-in cop.
func Defaults() []cop.Rule {
	return []cop.Rule{
		NewRedundantMatch(),
		NewBinaryOperatorWithIdenticalOperands(),
	}
}

// RegisterDefaults registers every built-in cop with reg.
func RegisterDefaults(reg *cop.Registry) error {
	for _, r := range Defaults() {
		if err := reg.Register(r); err != nil {
			return fmt.Errorf("cops: %w", err)
		}
	}
	return nil
}
