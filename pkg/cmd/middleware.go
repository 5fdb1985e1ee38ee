package cmd

// Middleware wraps a command. The result is still a Command.
type Middleware func(Command) Command

// Apply applies middlewares in order; the last one is the outermost.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}
