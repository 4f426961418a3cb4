// Package filetree owns submitted file trees.
//
// Ownership boundary:
// - decoding client trees into Node values
//
// - name/depth/length validation
//
// - writing a validated tree under a scratch root and removing it again
//
// Validation is the only path-confinement guard. Materialize trusts names
// exactly as Validate accepted them.
package filetree
