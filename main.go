package main

import "github.com/frahmantamala/tracker-workorders/cmd"

func main() {
	cmd.Execute()
}
