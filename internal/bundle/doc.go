// Package bundle reads template bundles: pre-parsed component templates
// produced by an external template parser, stored as JSON (*.tpl.json) or
// msgpack (*.tpl.msgpack). Load validates a bundle and lowers it into an
// ast.Builder with its template sources registered in a source.FileSet.
package bundle
