package cpu

// ops.go defines the 36 opcodes and their semantics. Each opcode is a small
// struct, decoded from the instruction's operand bytes, that implements a
// subset of the staged operation interfaces declared in exec.go.

import "fmt"

// mo ("micro-op") is embedded by every operation; it carries the error state
// common to all of them.
type mo struct {
	cpu *CPU
	err error
}

func (op mo) Err() error      { return op.err }
func (op *mo) Fail(err error) { op.err = err }
func (op mo) String() string  { return fmt.Sprintf("op[err:%v]", op.err) }

// clampALU applies the universal ALU result/flag rule: clamp to [0, 0xFF],
// set V on over/underflow, set Z iff the clamped result is zero.
func clampALU(cpu *CPU, result int) uint8 {
	switch {
	case result > 0xFF:
		cpu.V = true
		result = 0xFF
	case result < 0:
		cpu.V = true
		result = 0
	default:
		cpu.V = false
	}

	cpu.Z = result == 0

	return uint8(result)
}

func lo8(r uint16) uint8      { return uint8(r) }
func setLo8(r *uint16, v uint8) { *r = uint16(v) }

// --- ADD/SUB/MUL: rd <- rd OP op2 (immediate byte) ---

type aluImm struct {
	mo
	rd  uint8
	op2 uint8
	fn  func(a, b int) int
}

func (op *aluImm) Execute() {
	a := int(lo8(op.cpu.Reg[op.rd]))
	result := op.fn(a, int(op.op2))
	setLo8(&op.cpu.Reg[op.rd], clampALU(op.cpu, result))
}

func decodeADD(cpu *CPU, rd, _ uint8, b []byte) *aluImm {
	return &aluImm{mo: mo{cpu: cpu}, rd: rd, op2: b[0], fn: func(a, b int) int { return a + b }}
}

func decodeSUB(cpu *CPU, rd, _ uint8, b []byte) *aluImm {
	return &aluImm{mo: mo{cpu: cpu}, rd: rd, op2: b[0], fn: func(a, b int) int { return a - b }}
}

func decodeMUL(cpu *CPU, rd, _ uint8, b []byte) *aluImm {
	return &aluImm{mo: mo{cpu: cpu}, rd: rd, op2: b[0], fn: func(a, b int) int { return a * b }}
}

// --- ADM/SBM/MLM: rd <- mem[addr] OP rn ---

type aluMem struct {
	mo
	rd, rn uint8
	addr   uint32
	fn     func(a, b int) int
}

func (op *aluMem) EvalAddress() {}

func (op *aluMem) FetchOperands() {}

func (op *aluMem) Execute() {
	memVal := int(op.cpu.Mem.Read8(op.addr))
	rnVal := int(lo8(op.cpu.Reg[op.rn]))
	result := op.fn(memVal, rnVal)
	setLo8(&op.cpu.Reg[op.rd], clampALU(op.cpu, result))
}

func decodeALUMem(cpu *CPU, rd, rn uint8, b []byte, fn func(a, b int) int) *aluMem {
	addr := uint32(b[0])<<8 | uint32(b[1])
	return &aluMem{mo: mo{cpu: cpu}, rd: rd, rn: rn, addr: addr, fn: fn}
}

// --- ADR/SBR/MLR: mem[dst] <- rd OP rn ---

type aluStore struct {
	mo
	rd, rn uint8
	dst    uint32
	fn     func(a, b int) int
}

func (op *aluStore) EvalAddress() {}

func (op *aluStore) Execute() {}

func (op *aluStore) StoreResult() {
	rdVal := int(lo8(op.cpu.Reg[op.rd]))
	rnVal := int(lo8(op.cpu.Reg[op.rn]))
	result := op.fn(rdVal, rnVal)
	clamped := clampALU(op.cpu, result)
	op.cpu.Mem.Write8(op.dst, clamped)
	op.cpu.Z = clamped == 0
}

func decodeALUStore(cpu *CPU, rd, rn uint8, b []byte, fn func(a, b int) int) *aluStore {
	dst := uint32(b[0])<<8 | uint32(b[1])
	return &aluStore{mo: mo{cpu: cpu}, rd: rd, rn: rn, dst: dst, fn: fn}
}

// --- CLZ: rd <- count-leading-zeros(rn) ---

type clz struct {
	mo
	rd, rn uint8
}

func (op *clz) Execute() {
	v := lo8(op.cpu.Reg[op.rn])

	n := uint8(0)
	for i := 7; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			break
		}
		n++
	}

	setLo8(&op.cpu.Reg[op.rd], n)
	op.cpu.Z = n == 0
}

// --- STO: rd <- imm ---

type sto struct {
	mo
	rd  uint8
	imm uint8
}

func (op *sto) Execute() {
	setLo8(&op.cpu.Reg[op.rd], op.imm)
	op.cpu.Z = op.imm == 0
}

// --- STM: mem[addr] <- rd ---

type stm struct {
	mo
	rd   uint8
	addr uint32
}

func (op *stm) EvalAddress() {}

func (op *stm) Execute() {}

func (op *stm) StoreResult() {
	op.cpu.Mem.Write8(op.addr, lo8(op.cpu.Reg[op.rd]))
}

// --- LDM: rd <- mem[addr] ---

type ldm struct {
	mo
	rd   uint8
	addr uint32
}

func (op *ldm) EvalAddress() {}

func (op *ldm) FetchOperands() {
	v := op.cpu.Mem.Read8(op.addr)
	setLo8(&op.cpu.Reg[op.rd], v)
	op.cpu.Z = v == 0
}

// --- PSH/POP ---

type psh struct {
	mo
	rd uint8
}

func (op *psh) Execute() { op.cpu.PushStack(lo8(op.cpu.Reg[op.rd])) }

type pop struct {
	mo
	rd uint8
}

func (op *pop) Execute() {
	v := op.cpu.PopStack()
	setLo8(&op.cpu.Reg[op.rd], v)
	op.cpu.Z = v == 0
}

// --- Branches: BRN/BRZ/BRO (unconditional/on-zero/on-no-overflow) ---

type branch struct {
	mo
	target  uint16
	taken   bool
	applied bool
}

func (op *branch) Execute() {
	if op.taken {
		op.cpu.SetPC(op.target)
		op.applied = true
	}
}

func decodeBRN(cpu *CPU, b []byte) *branch {
	return &branch{mo: mo{cpu: cpu}, target: be16(b), taken: true}
}

func decodeBRZ(cpu *CPU, b []byte) *branch {
	return &branch{mo: mo{cpu: cpu}, target: be16(b), taken: cpu.Z}
}

func decodeBRO(cpu *CPU, b []byte) *branch {
	return &branch{mo: mo{cpu: cpu}, target: be16(b), taken: !cpu.V}
}

// --- BRR/BNR: branch if rd == rn / rd != rn ---

type branchCmp struct {
	mo
	rd, rn  uint8
	target  uint16
	equal   bool
	applied bool
}

func (op *branchCmp) Execute() {
	same := op.cpu.Reg[op.rd] == op.cpu.Reg[op.rn]
	if same == op.equal {
		op.cpu.SetPC(op.target)
		op.applied = true
	}
}

// --- HLT: halt current task ---

type hlt struct {
	mo
}

func (op *hlt) Execute() { op.cpu.Halted = true }

// --- JSR: push return address, branch to target ---

type jsr struct {
	mo
	target  uint16
	retAddr uint16
}

func (op *jsr) Execute() {
	op.cpu.pushPC16(op.retAddr)
	op.cpu.SetPC(op.target)
}

// --- OSR: return from subroutine ---

type osr struct {
	mo
}

func (op *osr) Execute() {
	op.cpu.SetPC(op.cpu.popPC16())
}

// --- RSM/RLD: memory<->flash byte transfer ---
//
// Direction is a configuration choice per the design notes: RSM copies
// mem[reg[rn]] -> mem[reg[rd]] (save-to-flash direction), RLD the reverse
// (load-from-flash). Both operate through the same byte-addressed bus, since
// flash is mapped as an ordinary FLASH section.

type xfer struct {
	mo
	rd, rn uint8
	toRd   bool
}

func (op *xfer) Execute() {
	src := uint32(op.cpu.Reg[op.rn])
	dst := uint32(op.cpu.Reg[op.rd])

	if op.toRd {
		op.cpu.Mem.Write8(dst, op.cpu.Mem.Read8(src))
	} else {
		op.cpu.Mem.Write8(src, op.cpu.Mem.Read8(dst))
	}
}

// --- ENI/DSI ---

type eni struct{ mo }

func (op *eni) Execute() { op.cpu.IntEnabled = true }

type dsi struct{ mo }

func (op *dsi) Execute() { op.cpu.IntEnabled = false }

// --- LSH/LSR/RSH/RSR: shifts by an immediate or register count ---
//
// LSH/RSH take the count from register rn; LSR/RSR take it from the
// instruction's trailing immediate byte.

type shift struct {
	mo
	rd    uint8
	n     uint8
	left  bool
}

func (op *shift) Execute() {
	v := lo8(op.cpu.Reg[op.rd])

	var result uint8
	if op.left {
		result = v << (op.n & 0x07)
	} else {
		result = v >> (op.n & 0x07)
	}

	setLo8(&op.cpu.Reg[op.rd], result)
	op.cpu.Z = result == 0
}

// --- AND/ORR/XOR: rd <- rn OP op2 (16-bit immediate) ---

type bitwise struct {
	mo
	rd, rn uint8
	op2    uint16
	fn     func(a, b uint16) uint16
}

func (op *bitwise) Execute() {
	result := op.fn(op.cpu.Reg[op.rn], op.op2)
	op.cpu.Reg[op.rd] = result
	op.cpu.Z = result == 0
}

// --- MULL: 32-bit unsigned multiply, high half -> rd, low half -> rn1 ---

type mull struct {
	mo
	rd, rn, rn1 uint8
}

func (op *mull) Execute() {
	product := uint32(op.cpu.Reg[op.rd]) * uint32(op.cpu.Reg[op.rn])
	op.cpu.Reg[op.rd] = uint16(product >> 16)
	op.cpu.Reg[op.rn1] = uint16(product)
	op.cpu.Z = product == 0
}

// --- NOP ---

type nop struct{ mo }

func (op *nop) Execute() {}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
