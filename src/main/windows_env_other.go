//go:build !windows

package main

func enableDPIAwareness() {}

// Display layout is logged by screenshot.LogDisplays on every platform.
func logMonitorConfiguration() {}
