// Package subscription routes server-pushed peer updates to application
// subscriptions.
//
// A [Subscription] names an optional peer identity filter, the set of state
// components the application cares about, and a callback. For each incoming
// batch the [Router] delivers to every matching subscription a filtered copy
// of the updates carrying only the requested components that were actually
// present; updates with none of the requested components present are
// dropped, and a callback fires at most once per batch and never with an
// empty slice.
package subscription
