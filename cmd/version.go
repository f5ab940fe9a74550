package cmd

import "fmt"

// runVersion displays version information.
func runVersion() {
	fmt.Printf("Selah %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
