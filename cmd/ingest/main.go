// Command ingest runs one-shot pipeline jobs without the HTTP server.
package main

func main() {
	Execute()
}
