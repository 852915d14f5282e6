// Command rtrctl runs RTR imports and permit maintenance from the shell.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
