package cpu

// exec.go defines the CPU instruction cycle: fetch, decode, and the staged
// dispatch over each operation's optional addressable/fetchable/executable/
// storable interfaces.

import "fmt"

// operation is implemented by every decoded instruction.
type operation interface {
	Fail(err error)
	Err() error
	fmt.Stringer
}

// addressable operations compute a memory address before executing.
type addressable interface {
	operation
	EvalAddress()
}

// fetchable operations load an operand from memory.
type fetchable interface {
	addressable
	FetchOperands()
}

// executable operations update CPU state.
type executable interface {
	operation
	Execute()
}

// storable operations write a result back to memory.
type storable interface {
	addressable
	StoreResult()
}

// Decode builds the operation struct for opcode from its register nibbles and
// remaining operand bytes. The caller has already split off the (rd:4, rn:4)
// byte, so b holds opcode.Len()-2 bytes, except for the target-only branches
// BRN/BRZ/BRO/JSR, which have no register byte and get opcode.Len()-1.
func (c *CPU) Decode(op Opcode, rd, rn uint8, b []byte) operation {
	switch op {
	case NOP:
		return &nop{mo: mo{cpu: c}}
	case ADD:
		return decodeADD(c, rd, rn, b)
	case SUB:
		return decodeSUB(c, rd, rn, b)
	case MUL:
		return decodeMUL(c, rd, rn, b)
	case ADM:
		return decodeALUMem(c, rd, rn, b, func(m, r int) int { return m + r })
	case SBM:
		return decodeALUMem(c, rd, rn, b, func(m, r int) int { return m - r })
	case MLM:
		return decodeALUMem(c, rd, rn, b, func(m, r int) int { return m * r })
	case ADR:
		return decodeALUStore(c, rd, rn, b, func(a, b int) int { return a + b })
	case SBR:
		return decodeALUStore(c, rd, rn, b, func(a, b int) int { return a - b })
	case MLR:
		return decodeALUStore(c, rd, rn, b, func(a, b int) int { return a * b })
	case CLZ:
		return &clz{mo: mo{cpu: c}, rd: rd, rn: rn}
	case STO:
		return &sto{mo: mo{cpu: c}, rd: rd, imm: b[0]}
	case STM:
		return &stm{mo: mo{cpu: c}, rd: rd, addr: uint32(b[0])}
	case LDM:
		return &ldm{mo: mo{cpu: c}, rd: rd, addr: uint32(b[0])}
	case PSH:
		return &psh{mo: mo{cpu: c}, rd: rd}
	case POP:
		return &pop{mo: mo{cpu: c}, rd: rd}
	case BRN:
		return decodeBRN(c, b)
	case BRZ:
		return decodeBRZ(c, b)
	case BRO:
		return decodeBRO(c, b)
	case BRR:
		return &branchCmp{mo: mo{cpu: c}, rd: rd, rn: rn, target: be16(b), equal: true}
	case BNR:
		return &branchCmp{mo: mo{cpu: c}, rd: rd, rn: rn, target: be16(b), equal: false}
	case HLT:
		return &hlt{mo: mo{cpu: c}}
	case JSR:
		return &jsr{mo: mo{cpu: c}, target: be16(b), retAddr: c.PC()}
	case OSR:
		return &osr{mo: mo{cpu: c}}
	case RSM:
		return &xfer{mo: mo{cpu: c}, rd: rd, rn: rn, toRd: true}
	case RLD:
		return &xfer{mo: mo{cpu: c}, rd: rd, rn: rn, toRd: false}
	case ENI:
		return &eni{mo: mo{cpu: c}}
	case DSI:
		return &dsi{mo: mo{cpu: c}}
	case LSH:
		return &shift{mo: mo{cpu: c}, rd: rd, n: lo8(c.Reg[rn]), left: true}
	case LSR:
		return &shift{mo: mo{cpu: c}, rd: rd, n: b[0], left: true}
	case RSH:
		return &shift{mo: mo{cpu: c}, rd: rd, n: lo8(c.Reg[rn]), left: false}
	case RSR:
		return &shift{mo: mo{cpu: c}, rd: rd, n: b[0], left: false}
	case AND:
		return &bitwise{mo: mo{cpu: c}, rd: rd, rn: rn, op2: be16(b), fn: func(a, b uint16) uint16 { return a & b }}
	case ORR:
		return &bitwise{mo: mo{cpu: c}, rd: rd, rn: rn, op2: be16(b), fn: func(a, b uint16) uint16 { return a | b }}
	case XOR:
		return &bitwise{mo: mo{cpu: c}, rd: rd, rn: rn, op2: be16(b), fn: func(a, b uint16) uint16 { return a ^ b }}
	case MULL:
		rn1, _ := regByte(b[0])
		return &mull{mo: mo{cpu: c}, rd: rd, rn: rn, rn1: rn1}
	default:
		return nil
	}
}

// Step runs a single instruction to completion: service at most one pending
// interrupt, then fetch, decode, and dispatch.
func (c *CPU) Step() error {
	if c.Halted {
		return ErrHalted
	}

	if c.IntEnabled {
		c.serviceInterrupt()
	}

	pc := uint32(c.PC())
	opByte := c.Mem.Read8(pc)
	op := Opcode(opByte)

	length := op.Len()
	if length == 0 {
		c.log.Error("SIGILL at PC", "pc", pc, "opcode", opByte)
		c.Halted = true

		return nil
	}

	var operands []byte
	if length > 1 {
		operands = make([]byte, length-1)
		for i := range operands {
			operands[i] = c.Mem.Read8(pc + 1 + uint32(i))
		}
	}

	// BRN/BRZ/BRO/JSR carry no register operand: their operand bytes are a
	// plain 16-bit target, not a (rd:4, rn:4) byte followed by one more.
	targetOnly := op == BRN || op == BRZ || op == BRO || op == JSR

	var rd, rn uint8
	if len(operands) > 0 && !targetOnly {
		rd, rn = regByte(operands[0])
		operands = operands[1:]
	}

	instr := c.Decode(op, rd, rn, operands)
	if instr == nil {
		c.log.Error("SIGILL at PC (unhandled opcode)", "pc", pc, "opcode", opByte)
		c.Halted = true

		return nil
	}

	if j, ok := instr.(*jsr); ok {
		j.retAddr = c.PC() + length
	}

	branched := c.dispatch(instr)

	if instr.Err() == nil && !branched {
		c.SetPC(c.PC() + length)
	}

	if c.debugTrace {
		c.log.Debug("executed", "op", instr, "pc", c.PC())
	}

	return nil
}

// dispatch runs the staged pipeline over instr and reports whether the
// operation assigned PC directly (a taken branch, JSR, or OSR), which
// suppresses the automatic PC += length that follows non-branching ops.
func (c *CPU) dispatch(instr operation) bool {
	if op, ok := instr.(addressable); ok {
		op.EvalAddress()
	}

	if op, ok := instr.(fetchable); ok {
		op.FetchOperands()
	}

	branched := false

	if op, ok := instr.(executable); ok {
		op.Execute()
	}

	switch v := instr.(type) {
	case *branch:
		branched = v.applied
	case *branchCmp:
		branched = v.applied
	case *jsr:
		branched = true
	case *osr:
		branched = true
	}

	if op, ok := instr.(storable); ok {
		op.StoreResult()
	}

	return branched
}

// serviceInterrupt dequeues at most one pending IRQ source and, if a handler
// is registered for it, pushes the current PC and jumps to the handler. This
// runs only at instruction boundaries, never mid-instruction.
func (c *CPU) serviceInterrupt() {
	source, ok := c.IRQ.Dequeue()
	if !ok {
		return
	}

	handler, ok := c.VT.Lookup(source)
	if !ok {
		return
	}

	c.pushPC16(c.PC())
	c.SetPC(uint16(handler))
}
