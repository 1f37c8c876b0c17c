/*
Package composable builds graphs of asynchronous transformation stages over a
publish/subscribe bus.

# Overview

A graph starts at a root Node. Operators attach an action to a node's
channels and return the child node the action publishes to:

	root := composable.NewRoot[int]()
	evens := composable.Map(root, func(n int) int { return n * 2 }).
	    Filter(func(n int) bool { return n > 2 })
	evens.Consume(func(n int) { fmt.Println(n) })

	root.Accept(1)
	root.Accept(2) // prints 4
	root.Accept(3) // prints 6

Every node has three channels on the shared bus:
  - accept: values of type T
  - error: errors raised by the actions feeding the node
  - flush: the signal asking buffered stages to drain

# Errors

A failing computation never panics through the bus. Map, Filter and
Consume publish returned errors, payload type mismatches and recovered
panics on the error channel of the node they feed, wrapped in an
*action.Error. Handle them by type:

	composable.When(node, func(err *ValidationError) {
	    log.Printf("invalid: %v", err)
	})

or all at once with OnError. Errors nobody listens for are dropped and
logged at debug level.

Structural mistakes are reported at build time: Connect, ConnectValues and
Merge return ErrSelfConnect or ErrNilNode, Timeout returns ErrNoTimer or
ErrInvalidDuration, and nil functions panic with ErrNilFunction. A filter
whose else node is the filtered node panics with ErrSelfConnect.

# Flushing

Flush on any node notifies the root's flush channel. Map and Filter forward
flushes to their children; FlatMap and Propagate forward only errors.
Propagate runs its supplier once per flush, and From replays its values:

	words := composable.From([]string{"a", "b"})
	upper := composable.Map(words, strings.ToUpper)
	upper.Consume(func(s string) { fmt.Println(s) })
	words.Flush() // prints A, B

Timeout flushes the root after a period without values reaching the node
it is called on:

	env := composable.NewEnvironment()
	defer env.Close()
	root := composable.NewRoot[Order](composable.WithEnvironment(env))
	stop, err := root.Timeout(5 * time.Second)

# Environment

An Environment supplies the dispatcher behind every bus it creates, the
default timer, and the logger, metrics and tracing used by buses and
actions. Load one from configuration with EnvironmentFromConfig:

	cfg, _ := config.FromFile("composable.yaml")
	env, err := composable.EnvironmentFromConfig(cfg)

With the default synchronous dispatcher every Accept runs the whole graph
before returning. A worker dispatcher runs deliveries on a fixed set of
goroutines, keeping per-channel order.

# Debugging

Debug renders the registrations reachable from the root, which is handy
when a value does not arrive where expected:

	fmt.Println(node.Debug())
*/
package composable
