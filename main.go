package main

import "techchat/cmd"

func main() {
	cmd.Execute()
}
