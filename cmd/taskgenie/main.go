// Command taskgenie evaluates work items for readiness and decomposes them
// into child work items.
package main

func main() {
	Execute()
}
