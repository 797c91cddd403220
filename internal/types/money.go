// README: Common value objects shared across modules.
package types

// ID is an opaque entity identifier.
type ID string

// Money is an amount in minor currency units.
type Money struct {
    Amount   int64
    Currency string
}
