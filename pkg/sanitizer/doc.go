// Package sanitizer decides whether a Cypher-style query string is safe to
// hand to the database.
//
// Sanitization is a pure function: given a query, an immutable Policy, and
// the bound parameters, it returns a Verdict with no I/O and no shared
// mutable state. The pipeline short-circuits on the first rejection:
//
//  1. Size and emptiness guard
//  2. Unicode normalization check (invisible characters, shrinkage)
//  3. Homoglyph and mixed-script check
//  4. Structural dangerous-pattern check (chaining, comments, dynamic
//     procedures, bulk import/export, batch iteration)
//  5. Read-only enforcement (write keywords anywhere in the clause chain)
//  6. Parameter name and value-type validation
//
// The homoglyph stage runs against a confusable-character table. When the
// full table cannot be loaded the sanitizer is constructed in degraded mode
// with a reduced Cyrillic/Greek table; both modes satisfy the same contract.
//
// Rejection reasons are machine-readable codes plus a short human message.
// A reason never echoes the offending raw substring, since the substring
// itself may be a credential or other sensitive value.
package sanitizer
