// Package executor executes GraphQL operations compiled into expression
// trees, in up to two phases.
//
// # Overview
//
// The executor never resolves fields one by one. It compiles the selected
// operation into a tree of expressions (package compiler), hands the parts a
// data source can answer to that source in a single call, and resolves the
// rest in process over the materialized result:
//   - Phase A evaluates the context-only tree through DataSource.Evaluate.
//     Fields that need services are represented by markers plus the
//     service-free values they read ("extracted" fields), so a translating
//     source such as SQLite sees only nodes it can express.
//   - Phase B runs only when fields were deferred. It evaluates a second tree
//     in process over the phase-A result: subtrees without deferred fields
//     are copied, deferred fields evaluate their live expression with every
//     extracted value read back from the result. The data source is never
//     consulted again, and element order and counts are left untouched.
//
// With ExecuteServiceFieldsSeparately disabled there is a single phase and
// service nodes stay inline; the data source resolves them through the
// environment's service resolver.
//
// # Preparation
//
// Before execution, the executor:
//  1. Chooses the operation (by name or by uniqueness when unnamed).
//  2. Coerces variables against the operation's variable definitions. Errors
//     here stop execution with INVALID_VARIABLES.
//  3. Creates the per-execution compile context holding options, the user
//     found in the request context, coerced variables and the deferred
//     service fields.
//  4. Compiles the operation. A malformed selection aborts the request with
//     MALFORMED_SELECTION; field scoped failures such as a denied
//     authorization, invalid arguments or an invalid cursor only null their
//     field and are reported once, at the path of the selection.
//
// Cancellation of the request context is checked before each phase. A phase
// already running is not interrupted by the executor itself.
//
// # Value Completion
//
// After the last phase the result is completed against the compiled nodes:
//   - Non-Null: a null value records an error (unless one was already
//     reported at that path) and propagates null to the nearest nullable
//     ancestor. Reaching the root nulls data.
//   - List: elements are completed with index-aware paths. A null element of
//     a Non-Null item type nullifies the whole list.
//   - Leaf (Scalar/Enum): pointers are dereferenced and values are serialized
//     to JSON-safe Go values; enum values are checked against the schema.
//   - Object: the node's children are completed in selection order.
//
// # Errors and Partial Success
//
// Errors are located GraphQL errors carrying their kind under
// extensions.code. A failing service only nulls the field it is guarded by;
// its path is the dynamic response path including list indexes. A failing
// data source fails the whole operation with a single DATA_SOURCE_FAILED
// error and no data.
package executor
