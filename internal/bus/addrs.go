package bus

// Fixed MMIO addresses for the built-in devices, per the memory bus's
// device hook table.
const (
	UARTAddr    uint32 = 0x10000
	PICBaseAddr uint32 = 0x20000
	PICLenAddr  uint32 = 0x20004
)
