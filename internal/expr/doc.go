// Package expr implements the immutable expression trees that compiled
// GraphQL operations are made of.
//
// A tree is built from parameters, constants, member access and a small set
// of sequence operators (Select, Where, OrderBy, Count, First, Page). Object
// construction shapes the response; Call and Service nodes represent
// in-process computation that a data source cannot translate.
//
// Every node carries a NodeID that is unique for the lifetime of the process.
// Rewrites are pure: Replace returns a new tree and leaves its input intact,
// so a compiled tree can be evaluated, rewritten and evaluated again.
//
// Eval is the in-process evaluator. Data sources that translate parts of a
// tree natively plug in through an Interceptor.
package expr
