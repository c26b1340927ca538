// Package spy defines the capability contract spyspec inspects and the matchers
// used to compare recorded values.
//
// A value is spy-like when it implements SpyLike directly, or when it is a
// Proxied stand-in (such as a single call record) whose Proxy does. The full
// query surface consumed by the assertions is History: every query comes in a
// "some call" form and an "every call" form.
//
// Matchers follow the gomock Matcher shape, so gomock.Eq and friends can be
// passed anywhere a Matcher is accepted.
package spy
