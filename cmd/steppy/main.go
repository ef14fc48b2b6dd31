package main

import "github.com/steppy/steppy-service/cmd/steppy/root"

func main() {
	root.Execute()
}
