package main

import "github.com/m-erhardt/check-vcenter/cmd"

func main() {
	cmd.Execute()
}
