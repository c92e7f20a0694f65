// Command fanctl drives server fan zones from the hottest sensor reading.
package main

import "github.com/oshokin/fanctl/cmd/fanctl/cmd"

func main() {
	cmd.Execute()
}
