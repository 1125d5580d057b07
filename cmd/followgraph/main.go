// Package main provides the followgraph CLI.
//
// followgraph walks the followers of a Twitter/X account down to a bounded
// depth and prints every visited profile.
//
// Usage:
//
//	followgraph traverse --user <handle>
//	followgraph traverse --root-id <id> --max-depth 1 --format json
//
// See --help for all available options.
package main

func main() {
	Execute()
}
