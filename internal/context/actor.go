// Package context resolves who is running mobproto, which table file
// it works on and the configuration that applies.
package context

import "os"

// ResolveActor returns the actor recorded in the undo journal:
// 1. flagValue (--actor flag) if non-empty
// 2. $MOBPROTO_ACTOR if set
// 3. $USER if set
// 4. "unknown"
func ResolveActor(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if actor := os.Getenv("MOBPROTO_ACTOR"); actor != "" {
		return actor
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "unknown"
}
