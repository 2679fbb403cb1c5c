/*
Package engineerr defines the error taxonomy shared across ruzudb's storage
and execution packages.

Most errors returned by this module are a *engineerr.Error carrying a
Kind; some I/O paths (for example page.DiskManager) return the underlying
os error unwrapped. Callers match a category with engineerr.Is(err, kind),
or use errors.As to reach the *engineerr.Error, rather than
string-matching messages.
*/
package engineerr
