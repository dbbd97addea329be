package main

import "github.com/and3rson/yagni/pkg/cmd"

func main() {
	cmd.Execute()
}
