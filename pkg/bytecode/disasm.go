package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders one line per instruction: address, mnemonic,
// operands, and the compiler's comment for that address, if any.
func (b *Bytecode) Disassemble() string {
	var sb strings.Builder
	for addr, word := range b.IStore {
		instr := Decode(word)
		fmt.Fprintf(&sb, "%04d  %-4s %5d %5d", addr, instr.Op, instr.Operand1, instr.Operand2)
		if c, ok := b.Comments[addr]; ok {
			fmt.Fprintf(&sb, "   ; %s", c)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// DisassembleOne renders a single already-decoded instruction the way a
// debug callback would receive it while the p-machine steps.
func DisassembleOne(pc int, instr Instruction) string {
	return fmt.Sprintf("%04d  %-4s %5d %5d", pc, instr.Op, instr.Operand1, instr.Operand2)
}
