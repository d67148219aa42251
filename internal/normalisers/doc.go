// Package normalisers extracts readable text from local documents for
// suggestion providers that cannot read the original format. Each
// subpackage handles one family of MIME types; Default wires them into a
// Registry.
package normalisers
