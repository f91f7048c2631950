// Package ticket holds the authentication ticket model, its binary cache
// codec, and the Store that keeps the ticket cache and the session metadata
// repository consistent through the session lifecycle.
package ticket
