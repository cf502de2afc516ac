// Command hakagen synthesizes a day of camera detections from the
// statistics of a month of history.
package main

func main() {
	Execute()
}
