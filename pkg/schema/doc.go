// Package schema normalizes tool input schemas for model backends.
//
// A tool source describes its inputs as a set of request parameters plus an
// optional body. Flatten merges those into a single object schema, Strip
// removes the combinator keywords most backends reject, and Render wraps the
// result in the tool declaration envelope a backend dialect expects.
package schema
