/*
Package types is the innermost package in ruzudb: it has no internal
dependencies and is imported by every storage and execution package.

Value is a small tagged union (Int64/Float32/Float64/Bool/String/Date/
Timestamp/Null) rather than an interface, so that columns of Values stay
allocation-free to compare and copy. Compare is intentionally strict about
matching types; callers that need Int64-vs-Float64 literal comparisons call
PromoteForComparison first, matching the two-step design of the row
executor this package is modeled on.
*/
package types
