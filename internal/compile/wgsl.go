package compile

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/naga"

	"shaderharness/internal/script"
)

// compileWGSL compiles a WGSL unit in process and writes the SPIR-V module
// as hexadecimal words, one per line, the textual form binary pass sections
// embed. Compiler diagnostics are carried on the Failure's stderr, mirroring
// the external toolchain.
func compileWGSL(unit script.CompileUnit) error {
	module, err := naga.Compile(unit.Source)
	if err != nil {
		return &Failure{
			Stage:  unit.Stage,
			Stderr: []byte(err.Error()),
		}
	}

	text, err := encodeWords(module)
	if err != nil {
		return &Failure{
			Stage:  unit.Stage,
			Stderr: []byte(err.Error()),
		}
	}
	if err := os.WriteFile(unit.Destination, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing artifact %s: %w", unit.Destination, err)
	}
	return nil
}

// encodeWords renders a binary SPIR-V module as lowercase 8-digit hex words.
func encodeWords(module []byte) (string, error) {
	if len(module)%4 != 0 {
		return "", fmt.Errorf("SPIR-V module length %d is not word aligned", len(module))
	}
	var b strings.Builder
	for i := 0; i < len(module); i += 4 {
		word := binary.LittleEndian.Uint32(module[i : i+4])
		fmt.Fprintf(&b, "%08x\n", word)
	}
	return b.String(), nil
}
