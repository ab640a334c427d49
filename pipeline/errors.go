package pipeline

import "errors"

// ErrInvariant is wrapped by errors reporting malformed internally
// generated data: wrong operand counts, unknown special-input IDs,
// missing location mappings. Such an error indicates a bug in an
// earlier pipeline stage, not invalid user input; the host build
// system decides whether to abort the pipeline or report it.
var ErrInvariant = errors.New("pipeline invariant violated")
