package main

import "github.com/roadease/workshop-management/cmd"

func main() {
	cmd.Execute()
}
