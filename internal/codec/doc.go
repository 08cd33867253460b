// Package codec turns a document into the opaque payload handed to the
// transport, and back.
//
// Write path: canonical JSON -> gzip -> Expand (length prefix plus random
// noise up to a whole number of blocks). Read path is the exact reverse.
// The block size hides the true payload size inside the encrypted blob and
// must be the same for every reader and writer of a file.
package codec
