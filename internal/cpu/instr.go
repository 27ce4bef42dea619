package cpu

// Opcode identifies the operation encoded in an instruction's first byte.
type Opcode uint8

// The 36-opcode instruction set. Mnemonics and encodings per the interpreter
// design: first byte opcode, second byte (when present) packs (rd:4, rn:4),
// remaining bytes (0-2) carry immediate/operand/address/target fields.
const (
	NOP Opcode = 0x00
	ADD Opcode = 0x01
	SUB Opcode = 0x02
	MUL Opcode = 0x03
	ADM Opcode = 0x04
	SBM Opcode = 0x05
	MLM Opcode = 0x06
	ADR Opcode = 0x07
	SBR Opcode = 0x08
	MLR Opcode = 0x09
	CLZ Opcode = 0x0A
	STO Opcode = 0x0B
	STM Opcode = 0x0C
	LDM Opcode = 0x0D
	PSH Opcode = 0x0E
	POP Opcode = 0x0F
	BRN Opcode = 0x10
	BRZ Opcode = 0x11
	BRO Opcode = 0x12
	BRR Opcode = 0x13
	BNR Opcode = 0x14
	HLT Opcode = 0x15
	JSR Opcode = 0x16
	OSR Opcode = 0x17
	RSM Opcode = 0x18
	RLD Opcode = 0x19
	ENI Opcode = 0x1A
	DSI Opcode = 0x1B
	LSH Opcode = 0x1C
	LSR Opcode = 0x1D
	RSH Opcode = 0x1E
	RSR Opcode = 0x1F
	AND Opcode = 0x20
	ORR Opcode = 0x21
	MULL Opcode = 0x22
	XOR Opcode = 0x23
)

// instrLen is the PC-increment table (§4.5.3). LSH/LSR/RSH/RSR are not named
// in any length group in the source table; they are assigned length 3 here,
// matching the shape of their "rd, imm or rn" operand pair (opcode + rd/rn
// byte + one more byte).
var instrLen = map[Opcode]uint16{
	NOP: 1, HLT: 1, OSR: 1, ENI: 1, DSI: 1,
	CLZ: 2, PSH: 2, POP: 2,
	ADD: 3, SUB: 3, MUL: 3, STO: 3, STM: 3, LDM: 3, BRN: 3, BRZ: 3, BRO: 3, JSR: 3,
	LSH: 3, LSR: 3, RSH: 3, RSR: 3,
	ADM: 4, SBM: 4, MLM: 4, ADR: 4, SBR: 4, MLR: 4, BRR: 4, BNR: 4, RSM: 4, RLD: 4,
	AND: 4, ORR: 4, XOR: 4, MULL: 4,
}

// Len returns the byte length of an instruction with this opcode, or 0 if
// the opcode is not recognized.
func (op Opcode) Len() uint16 { return instrLen[op] }

// regByte unpacks the (rd:4, rn:4) operand byte.
func regByte(b uint8) (rd, rn uint8) {
	return b >> 4, b & 0x0F
}
