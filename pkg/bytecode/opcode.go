// Package bytecode defines the p-code instruction encoding and the
// Bytecode container the compiler produces and the p-machine consumes.
package bytecode

// Op is one p-code opcode. The source this toolchain is modeled on maps
// TRC/RND/CHR/ORD to the same opcode byte; per spec.md §9's open question
// we took option (a) and assigned each a distinct opcode below instead of
// preserving the collision.
type Op uint8

const (
	OpNOP Op = iota

	OpCUP // CUP(argSz, addr): call user subprogram
	OpCSP // CSP(argN, nativeIdx): call native procedure
	OpENT // ENT(_, size): set sp to mp+size
	OpMST // MST(level): push a 5-word mark
	OpRTN // RTN(typeCode): pop frame, return

	OpLDC // LDC(typeCode, constIdx): push constants[k]
	OpLDA // LDA(level, offset): push address
	OpLDI // LDI: pop address, push value at address
	OpSTI // STI: pop value, pop address, store value at address

	OpLVA // LVA(level, offset): load the address stored in the slot (by-ref parameters)
	OpLVB // LVB(level, offset): load boolean value
	OpLVC // LVC(level, offset): load char value
	OpLVI // LVI(level, offset): load integer value
	OpLVR // LVR(level, offset): load real value

	OpIXA // IXA(_, stride): a,i -> a+i*stride

	OpUJP // UJP(_, addr): unconditional jump
	OpFJP // FJP(_, addr): jump if top-of-stack boolean is false
	OpTJP // TJP(_, addr): jump if top-of-stack boolean is true
	OpXJP // XJP: jump to popped address

	OpADI
	OpSBI
	OpMPI
	OpDVI
	OpMOD
	OpNGI

	OpADR
	OpSBR
	OpMPR
	OpDVR
	OpNGR

	OpAND
	OpIOR
	OpNOTB

	OpEQU // EQU(typeCode, _): comparisons
	OpNEQ
	OpGRT
	OpGEQ
	OpLES
	OpLEQ

	OpINC // INC(level, offset): ++ the addressed variable
	OpDEC // DEC(level, offset): -- the addressed variable

	OpFLT // FLT: integer -> real cast (no-op in the value domain)
	OpCHR // CHR: integer -> char cast
	OpORD // ORD: char -> integer cast
	OpRND // RND: round real -> integer
	OpTRC // TRC: truncate real -> integer

	OpSTP // STP: halt

	opCount
)

var opNames = [opCount]string{
	OpNOP: "NOP",
	OpCUP: "CUP", OpCSP: "CSP", OpENT: "ENT", OpMST: "MST", OpRTN: "RTN",
	OpLDC: "LDC", OpLDA: "LDA", OpLDI: "LDI", OpSTI: "STI",
	OpLVA: "LVA", OpLVB: "LVB", OpLVC: "LVC", OpLVI: "LVI", OpLVR: "LVR",
	OpIXA: "IXA",
	OpUJP: "UJP", OpFJP: "FJP", OpTJP: "TJP", OpXJP: "XJP",
	OpADI: "ADI", OpSBI: "SBI", OpMPI: "MPI", OpDVI: "DVI", OpMOD: "MOD", OpNGI: "NGI",
	OpADR: "ADR", OpSBR: "SBR", OpMPR: "MPR", OpDVR: "DVR", OpNGR: "NGR",
	OpAND: "AND", OpIOR: "IOR", OpNOTB: "NOT",
	OpEQU: "EQU", OpNEQ: "NEQ", OpGRT: "GRT", OpGEQ: "GEQ", OpLES: "LES", OpLEQ: "LEQ",
	OpINC: "INC", OpDEC: "DEC",
	OpFLT: "FLT", OpCHR: "CHR", OpORD: "ORD", OpRND: "RND", OpTRC: "TRC",
	OpSTP: "STP",
}

func (op Op) String() string {
	if int(op) >= 0 && int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "???"
}
