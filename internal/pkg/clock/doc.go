// Package clock provides a tiny time abstraction plus business-timezone
// calendar helpers.
//
// Production code should depend on the Clocker interface instead of calling
// time.Now() directly, and must bucket days/hours through Business so that
// "today" means the tenant's today regardless of where the process runs.
package clock
