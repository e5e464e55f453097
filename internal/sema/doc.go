// Package sema checks component templates for binding semantics that plain type
// checking cannot express.
//
// The Engine walks a component's structural nodes and hands every binding to its
// rules. The built-in read-only rule reports writes to template variables inside
// event bindings and two-way bindings whose target is a non-signal variable or
// @let declaration. The deprecated-usage rule, gated off by default, warns about
// template references to deprecated component members.
//
// Resolution is injected through symbols.Resolver, so tests can stub it.
package sema
