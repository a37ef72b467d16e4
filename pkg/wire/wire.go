/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: wire.go
Description: Bit-exact wire preamble wrapping (spec.md §6): every lifted
program is wrapped in a fixed outer frame resolving a print fallback,
defining the checksum container, and wrapping the generated body in a
try/finally that prints the final checksum.
*/

package wire

import "strings"

const preambleHead = `(function(__compat_global__){
  const __compat_out__ = ((__compat_global__)['console'] && (__compat_global__)['console'].log) || (__compat_global__)['print'];
  const __compat_checksum__ = [0xAB0110, {}];
  try {
`

const preambleTail = `
  } finally {
    __compat_out__("Checksum: " + __compat_checksum__[0]);
  }
})(globalThis || global);
`

// Wrap emits generatedCode inside the bit-exact wire preamble template. The
// three names (__compat_global__, __compat_out__, __compat_checksum__) are
// fixed string literals and must never be mangled (spec.md §6).
func Wrap(generatedCode string) string {
	var b strings.Builder
	b.WriteString(preambleHead)
	b.WriteString(generatedCode)
	b.WriteString(preambleTail)
	return b.String()
}

// IndentGeneratedCode indents every non-empty line of code by one level
// (four spaces), matching the preamble's own try-block indentation so the
// wrapped output reads as hand-formatted source rather than a mechanical
// concatenation.
func IndentGeneratedCode(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
