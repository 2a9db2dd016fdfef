package main

import "github.com/nikogura/dfx-scorer/cmd"

func main() {
	cmd.Execute()
}
