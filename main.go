package main

import "github.com/lazvid/backend/cmd"

func main() {
	cmd.Execute()
}
