// Package observable provides the synchronous change-notification
// primitives behind the session state and the audit event stream.
//
// A [Subject] holds a current value and replays it to every new subscriber.
// A [Stream] has no current value; each published item is delivered once to
// every subscriber registered at publish time.
//
// Delivery is synchronous and serialized: Set/Publish return only after every
// subscriber has run, and two concurrent publishers never interleave their
// deliveries. Subscribers must not publish back into the same Subject or
// Stream from inside their callback.
package observable
