//go:build windows

package main

import "os/exec"

// configureDaemonProc is a no-op on Windows; child processes already outlive
// the parent console.
func configureDaemonProc(cmd *exec.Cmd) {}
