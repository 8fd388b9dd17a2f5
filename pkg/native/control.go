package native

// ControlHandle is passed as the implicit first argument of every native
// call. It mediates every read/write a native procedure makes against the
// machine's data store, heap, and scheduling state, the way §6 specifies:
// the data store, program counter, and heap are owned exclusively by the
// p-machine, and host callbacks reach them only through this handle.
type ControlHandle interface {
	Stop()
	Delay(ms int)
	// Write appends text to the current output line without a trailing
	// newline, so a multi-argument WriteLn(a, b, c) can compose its
	// fragments at run time before WriteLn ends the line.
	Write(text string)
	// WriteLn ends the current output line.
	WriteLn(line string)

	ReadDstore(addr int) Word
	WriteDstore(addr int, value Word)

	Malloc(words int) (addr int, err error)
	Free(addr int)

	KeyPressed() bool
	ReadKey() rune // 0 if no key is queued

	// ResolveString looks up a string by its constant-pool index. String
	// values are represented as constant-pool indices rather than
	// mutable character buffers (spec §3's RawData/constant-pool model
	// has no general string-mutation opcode, and spec's Non-goals
	// exclude set-type/advanced string operations).
	ResolveString(constIdx int) string
}
