package thermal

import "fmt"

// ActuationCommand is the fan speed chosen for one zone in one control cycle.
type ActuationCommand struct {
	// ZoneID is the zone byte as understood by the BMC, e.g. "0x00".
	ZoneID string
	// Percent is the duty cycle, 0-100.
	Percent int
}

// Hex renders the percent the way ipmitool raw expects it (80 -> "0x50").
func (c ActuationCommand) Hex() string {
	return fmt.Sprintf("%#x", c.Percent)
}

// CommandsFor fans one percent out to every zone, keeping zone order.
func CommandsFor(zones []string, percent int) []ActuationCommand {
	commands := make([]ActuationCommand, 0, len(zones))

	for _, zone := range zones {
		commands = append(commands, ActuationCommand{
			ZoneID:  zone,
			Percent: percent,
		})
	}

	return commands
}
