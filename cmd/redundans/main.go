package main

import "redundans/cmd/redundans/internal"

func main() {
	internal.Execute()
}
