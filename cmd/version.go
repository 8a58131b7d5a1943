package main

import (
	"fmt"
	"runtime"

	"github.com/common-nighthawk/go-figure"
)

// Version is set at build time via ldflags.
var Version = "v0.1.0"

const appName = "aiguard"

func printBanner() {
	figure.NewFigure(appName, "cybermedium", true).Print()
	fmt.Println()
}

// PrintVersion prints the banner, version and runtime.
func PrintVersion() {
	printBanner()
	fmt.Printf("%s %s\n", appName, Version)
	fmt.Printf("Runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
