// Package ipmi drives BMC fan zones through `ipmitool raw`.
//
// The default byte sequences are the Supermicro X9/X10/X11 ones: full fan
// mode (0x30 0x45 0x01 0x01) so the BMC leaves the fans alone, and per-zone
// duty cycle (0x30 0x70 0x66 0x01 <zone> <percent>).
package ipmi
