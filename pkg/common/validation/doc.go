// Package validation provides common validation utilities for configuration
// parameters and request weights across the goshape library.
//
// Every function returns a *errors.ValidationError (or *errors.CapacityError
// for weights that can never fit), so callers get consistent messages and
// can classify failures with errors.Is.
package validation
