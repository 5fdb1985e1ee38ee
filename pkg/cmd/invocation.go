// Package cmd is a transport-agnostic command core. A command has a name, a
// description and Run(ctx, invocation); adapters decide how it is registered
// and dispatched (Discord slash commands, prefixed chat messages).
package cmd

import "context"

// Invocation carries what any runner can pass: positional arguments and an
// opaque payload the adapter fills with its own context type.
type Invocation struct {
	Args []string
	Data any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
