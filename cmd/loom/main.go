// Command loom manages a hierarchical work-item graph with reversible history.
package main

func main() {
	Execute()
}
