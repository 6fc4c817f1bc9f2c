//go:build !unix

package deps

func unameString() string { return "" }
