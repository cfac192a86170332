// Command trustctl scores snapshots offline and maintains stored score
// records: batch re-scoring, reproducibility checks and reports.
package main

func main() {
	Execute()
}
