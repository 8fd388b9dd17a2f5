package bytecode

import (
	"strconv"

	"tps3/pkg/ast"
)

// Constant is one entry in the de-duplicated constant pool: an integer,
// real, string, or the nil pointer value.
type Constant struct {
	Kind  ast.SimpleTypeCode
	Int   int64
	Real  float64
	Str   string
}

// Bytecode is the sole input the p-machine needs, alongside a set of host
// callbacks: the instruction store, the constant pool, the typed-constant
// data blob copied verbatim into the data store at load time, a
// disassembly comment per instruction address, and the program's start
// address.
type Bytecode struct {
	IStore         []uint32
	Constants      []Constant
	TypedConstants []int64 // raw words, float64 bits reinterpreted via math.Float64bits where needed
	StartAddress   int
	Comments       map[int]string

	// UsedModules records the names of every module a `uses` clause
	// named, in encounter order. Native call-site indices are positional
	// (spec §6: "index = call-site operand"), so a host loading this
	// bytecode back from disk must install the same modules in the same
	// order to reproduce the registry the compiler compiled against.
	UsedModules []string

	constIndex map[string]int // de-dup key -> index into Constants
}

// New creates an empty Bytecode ready to be appended to by the compiler.
func New() *Bytecode {
	return &Bytecode{
		Comments:   make(map[int]string),
		constIndex: make(map[string]int),
	}
}

// Emit appends one instruction and returns its address.
func (b *Bytecode) Emit(op Op, operand1, operand2 int) (int, error) {
	if err := CheckOperandRange(operand1, operand2); err != nil {
		return 0, err
	}
	addr := len(b.IStore)
	b.IStore = append(b.IStore, Encode(op, operand1, operand2))
	return addr, nil
}

// Patch rewrites the operands of an already-emitted instruction, used to
// back-patch forward jumps (if/while/exit) once the target is known.
func (b *Bytecode) Patch(addr int, op Op, operand1, operand2 int) error {
	if err := CheckOperandRange(operand1, operand2); err != nil {
		return err
	}
	b.IStore[addr] = Encode(op, operand1, operand2)
	return nil
}

// Here returns the address the next Emit call will use.
func (b *Bytecode) Here() int { return len(b.IStore) }

// InternInt interns an integer constant, returning its pool index.
func (b *Bytecode) InternInt(v int64) int {
	return b.intern(Constant{Kind: ast.TInteger, Int: v})
}

// InternReal interns a real constant.
func (b *Bytecode) InternReal(v float64) int {
	return b.intern(Constant{Kind: ast.TReal, Real: v})
}

// InternString interns a string constant.
func (b *Bytecode) InternString(v string) int {
	return b.intern(Constant{Kind: ast.TString, Str: v})
}

func (b *Bytecode) intern(c Constant) int {
	key := dedupKey(c)
	if idx, ok := b.constIndex[key]; ok {
		return idx
	}
	idx := len(b.Constants)
	b.Constants = append(b.Constants, c)
	b.constIndex[key] = idx
	return idx
}

func dedupKey(c Constant) string {
	switch c.Kind {
	case ast.TInteger:
		return "i" + itoa(c.Int)
	case ast.TReal:
		return "r" + ftoa(c.Real)
	case ast.TString:
		return "s" + c.Str
	default:
		return "?"
	}
}

// AppendTypedConstant appends one raw word to the typed-constant blob and
// returns its address within it.
func (b *Bytecode) AppendTypedConstant(word int64) int {
	addr := len(b.TypedConstants)
	b.TypedConstants = append(b.TypedConstants, word)
	return addr
}

// Comment attaches a human-readable disassembly note to an instruction
// address (e.g. the source statement it was compiled from).
func (b *Bytecode) Comment(addr int, text string) {
	b.Comments[addr] = text
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
