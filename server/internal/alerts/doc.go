// Package alerts implements the rule registry and the evaluation engine.
//
// Each tick the Engine pulls one statistics snapshot, walks the enabled rules
// in registration order, skips rules still inside their cooldown window,
// evaluates the rest, and for every rule that fires creates an alert in the
// store and hands it to the dispatcher without waiting for delivery.
//
// Cooldowns are measured from the rule's last trigger time on an injectable
// monotonic Clock; resolving an alert does not reset them. State is held in
// process memory: running several engines against the same producers yields
// duplicate alerts.
package alerts
