package cpu

// PushStack decrements SP then writes v. On underflow past the stack base
// (overflow of the stack's allotted space), SP clamps at the base and V is
// set rather than growing past the section.
func (c *CPU) PushStack(v uint8) {
	if c.sp <= c.spBase {
		c.V = true
		c.sp = c.spBase

		return
	}

	c.sp--
	c.Mem.Write8(c.sp, v)
}

// PopStack reads the byte at SP then increments. On underflow (SP already at
// the top of the section, nothing left to pop), SP clamps at the top and V
// is set; the returned byte is 0.
func (c *CPU) PopStack() uint8 {
	if c.sp >= c.spTop {
		c.V = true
		c.sp = c.spTop

		return 0
	}

	v := c.Mem.Read8(c.sp)
	c.sp++

	return v
}

// pushPC16 pushes a 16-bit program counter value as two bytes, big-endian,
// for JSR/interrupt servicing.
func (c *CPU) pushPC16(pc uint16) {
	c.PushStack(uint8(pc >> 8))
	c.PushStack(uint8(pc))
}

// popPC16 reverses pushPC16.
func (c *CPU) popPC16() uint16 {
	lo := c.PopStack()
	hi := c.PopStack()

	return uint16(hi)<<8 | uint16(lo)
}
